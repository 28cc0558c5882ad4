package dbase

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding"
)

// Config configures Open/Create, per spec §2/§9's ambient configuration
// surface (grounded on the teacher's Config struct).
type Config struct {
	Filename     string       // mandatory
	Encoding     encoding.Encoding // overrides the code page derived from the header
	TrimSpaces   bool         // trim surrounding whitespace from decoded string values in Gets/ForEach (beyond the padding the codec strips from C fields)
	Flagship     bool         // force Flagship V/X decoding rules
	ErrorHandler ErrorHandler // receives non-fatal conditions, spec §4.6/§7
}

// Row is a single record's values in column declaration order, as
// returned by GetAllData, per spec §4.3.
type Row []interface{}

// Record is a single record's values keyed by column name, as passed to
// the ForEach visitor and returned by Gets, per spec §4.3/§9 ("expose
// the same semantics... by calling a user-supplied visitor with such a
// map; do not leak the internal scan buffer").
type Record map[string]interface{}

// Table is the table engine: it owns the main file handle, the header,
// the compiled layout, and the memo store, per spec §3/§4.3.
type Table struct {
	config   *Config
	path     string
	file     tableFile
	header   *Header
	columns  []*Column
	layout   *Layout
	memo     *memoStore
	encoding encoding.Encoding

	headerFlushed   bool // whether the table's header/columns have ever been written to disk
	recordsModified bool
	fieldsModified  bool
	written         bool // anything was written this session (for the EOF-marker rule)

	position    int   // current ordinal within the live-record sequence, -1 if none
	seekAddress int64 // byte offset of the record at position
}

// dataOffset returns the byte offset where the record area begins.
func (t *Table) dataOffset() int64 { return int64(t.header.HeaderSize) }

// Open opens an existing DBF (and its sibling DBT, if the header expects
// one) per spec §4.3. If the file does not exist, an empty table is
// created and returned instead (matching the source's own leniency).
func Open(config *Config) (*Table, error) {
	if config == nil || config.Filename == "" {
		return nil, newError("table-open-1", fmt.Errorf("filename is required"))
	}
	path := filepath.Clean(config.Filename)
	if !exists(path) {
		return Create(config)
	}
	f, err := openExisting(path)
	if err != nil {
		return nil, newError("table-open-2", err)
	}
	header, ok, err := readHeader(f)
	if err != nil {
		return nil, newError("table-open-3", err)
	}
	t := &Table{config: config, path: path, file: f, headerFlushed: true, position: -1}
	if !ok {
		// Short read: empty table with no columns, per spec §4.1. Treated
		// like a freshly created table: no header has actually been
		// written yet, so the first Insert (or Close after AddColumn)
		// flushes one.
		t.header = &Header{Version: 0x32, VersionHex: hexByte(0x32), Dialect: resolveDialect(0x32)}
		t.headerFlushed = false
		t.columns = nil
		t.layout = compileLayout(nil, t.header.Dialect)
		t.memo = newMemoStore(t.header.Dialect.SingleByteMemoTerminator)
		t.encoding = config.Encoding
		return t, nil
	}
	if config.Flagship {
		header.Dialect.Flagship = true
	}
	t.header = header
	columns, err := readColumns(f, header.Dialect)
	if err != nil {
		return nil, newError("table-open-4", err)
	}
	t.columns = columns
	t.layout = compileLayout(columns, header.Dialect)
	t.encoding = resolveEncoding(config, header)
	t.memo = newMemoStore(header.Dialect.SingleByteMemoTerminator)
	if header.Dialect.MemoExpected {
		memoPath := siblingPath(path, ".dbt")
		if !exists(memoPath) {
			config.report(SymbolDBTDoesntExist, path)
		} else {
			mf, err := openExisting(memoPath)
			if err != nil {
				return nil, newError("table-open-5", err)
			}
			if err := t.memo.open(mf, memoPath); err != nil {
				return nil, newError("table-open-6", err)
			}
		}
	}
	return t, nil
}

// Create creates a new, empty table at config.Filename per spec §4.3:
// version 0x32 (Visual FoxPro with varchar/varbinary), record count 0,
// record size 0. The header is not written to disk until the first
// Insert, or until Close if columns were added before then.
func Create(config *Config) (*Table, error) {
	if config == nil || config.Filename == "" {
		return nil, newError("table-create-1", fmt.Errorf("filename is required"))
	}
	path := filepath.Clean(config.Filename)
	f, err := createTruncated(path)
	if err != nil {
		return nil, newError("table-create-2", err)
	}
	header := &Header{Version: 0x32, VersionHex: hexByte(0x32), Dialect: resolveDialect(0x32)}
	t := &Table{
		config:   config,
		path:     path,
		file:     f,
		header:   header,
		columns:  nil,
		layout:   compileLayout(nil, header.Dialect),
		memo:     newMemoStore(header.Dialect.SingleByteMemoTerminator),
		encoding: config.Encoding,
		position: -1,
	}
	return t, nil
}

// resolveEncoding picks the active encoding: the config's explicit
// override, else the header's language-driver code, else the system
// default (nil, meaning pass-through), per spec §4.1.
func resolveEncoding(config *Config, header *Header) encoding.Encoding {
	if config.Encoding != nil {
		return config.Encoding
	}
	if cp, ok := lookupCodePage(header.LanguageDriver); ok {
		return cp.Encoding
	}
	return nil
}

// siblingPath swaps a path's extension, preserving the case convention
// of the original extension (upper stays upper), per spec's sibling-DBT
// lookup behavior.
func siblingPath(path, ext string) string {
	orig := filepath.Ext(path)
	if strings.ToUpper(orig) == orig && orig != "" {
		ext = strings.ToUpper(ext)
	}
	return strings.TrimSuffix(path, orig) + ext
}

// Columns returns the table's column list in declaration order.
func (t *Table) Columns() []*Column { return t.columns }

// RecordCount returns the header's record count (includes tombstones).
func (t *Table) RecordCount() int { return int(t.header.RecordCount) }

// AddColumn appends a column to the table, per spec §4.3. Fails via the
// error handler (not fatally) with RECORDS_EXIST when the table already
// has records (whether opened or freshly created), or COLUMN_EXISTS on a
// duplicate name; warns with COLUMN_NAME_TOO_LONG when the name exceeds
// MaxColumnNameLength (the column is still appended).
func (t *Table) AddColumn(name string, typ DataType, length, precision int) error {
	if t.header.RecordCount > 0 {
		t.config.report(SymbolRecordsExist, name)
		return nil
	}
	for _, c := range t.columns {
		if c.RawName() == name {
			t.config.report(SymbolColumnExists, name)
			return nil
		}
	}
	if len(name) > MaxColumnNameLength {
		t.config.report(SymbolColumnNameTooLong, name)
	}
	column, err := NewColumn(name, typ, length, precision, false)
	if err != nil {
		return newError("table-addcolumn-1", err)
	}
	t.columns = append(t.columns, column)
	t.layout = compileLayout(t.columns, t.header.Dialect)
	t.fieldsModified = true
	return nil
}

// flushInitialHeader writes the very first header + descriptor block for
// a newly created table, computing HeaderSize/RecordSize from the
// current column list, per spec §3/§4.3.
func (t *Table) flushInitialHeader() error {
	t.header.HeaderSize = uint16(32 + 32*len(t.columns) + 1)
	t.header.RecordSize = uint16(t.layout.RecordSize)
	now := time.Now().UTC()
	if d, err := shortDateToBin(now.Format("20060102")); err == nil {
		t.header.Year, t.header.Month, t.header.Day = d[0], d[1], d[2]
	}
	if err := t.writeHeaderAndColumns(); err != nil {
		return newError("table-flushinitialheader-1", err)
	}
	t.headerFlushed = true
	t.fieldsModified = false
	return nil
}

// writeHeaderAndColumns writes the 32-byte header, the column
// descriptors, and the ColumnEnd sentinel.
func (t *Table) writeHeaderAndColumns() error {
	hdr := t.header.bytes()
	if _, err := t.file.WriteAt(hdr[:], 0); err != nil {
		return newError("table-writeheaderandcolumns-1", err)
	}
	offset := int64(32)
	for _, c := range t.columns {
		disk := c.toDisk(t.header.Dialect)
		if _, err := t.file.WriteAt(disk[:], offset); err != nil {
			return newError("table-writeheaderandcolumns-2", err)
		}
		offset += 32
	}
	if _, err := t.file.WriteAt([]byte{byte(ColumnEnd)}, offset); err != nil {
		return newError("table-writeheaderandcolumns-3", err)
	}
	t.written = true
	return nil
}

// updateHeaderCounters rewrites just the modification date and record
// count (and, if fieldsModified, the full descriptor block), used by
// Close and by Insert after a successful write. This is the corrected
// flow per spec §9: the date is converted from seconds to "YYYYMMDD"
// before being handed to shortDateToBin.
func (t *Table) updateHeaderCounters() error {
	now := time.Now().Unix()
	if d, err := shortDateToBin(secondsToShortDate(now)); err == nil {
		t.header.Year, t.header.Month, t.header.Day = d[0], d[1], d[2]
	}
	if t.fieldsModified {
		return t.writeHeaderAndColumns()
	}
	hdr := t.header.bytes()
	if _, err := t.file.WriteAt(hdr[:16], 0); err != nil {
		return newError("table-updateheadercounters-1", err)
	}
	t.written = true
	return nil
}

// ensureMemo creates the DBT sidecar on first use if none is open yet,
// per spec §4.4's writeMemoValue. Reports DBT_READ_ONLY and returns
// false (not an error) if the sidecar can't be created.
func (t *Table) ensureMemo() bool {
	if t.memo.isOpen() {
		return true
	}
	memoPath := siblingPath(t.path, ".dbt")
	f, err := createTruncated(memoPath)
	if err != nil {
		t.config.report(SymbolDBTReadOnly, err)
		return false
	}
	if err := t.memo.create(f, memoPath); err != nil {
		t.config.report(SymbolDBTReadOnly, err)
		return false
	}
	t.header.Dialect.MemoExpected = true
	return true
}

// Insert appends values as a new record, per spec §4.3: reused tombstone
// slot if one exists, else appended past the last record.
func (t *Table) Insert(values []interface{}) error {
	if len(values) != len(t.columns) {
		return newError("table-insert-1", fmt.Errorf("expected %d values, got %d", len(t.columns), len(values)))
	}
	if needsMemo(t.layout) && !t.memo.isOpen() {
		t.ensureMemo()
	}
	if !t.headerFlushed {
		if err := t.flushInitialHeader(); err != nil {
			return newError("table-insert-2", err)
		}
	}
	address, err := t.freeSlotAddress()
	if err != nil {
		return newError("table-insert-3", err)
	}
	raw, err := t.encodeRecord(values)
	if err != nil {
		t.memo.rollback()
		return newError("table-insert-4", err)
	}
	record := make([]byte, t.layout.RecordSize)
	record[0] = byte(Active)
	copy(record[1:], raw)
	if _, err := t.file.WriteAt(record, address); err != nil {
		return newError("table-insert-5", err)
	}
	t.written = true
	if err := t.memo.flush(); err != nil {
		return newError("table-insert-6", err)
	}
	if isAppend(address, t.dataOffset(), t.layout.RecordSize, int64(t.header.RecordCount)) {
		t.header.RecordCount++
	}
	t.recordsModified = true
	return t.updateHeaderCounters()
}

// needsMemo reports whether the layout has any memo-backed field.
func needsMemo(l *Layout) bool {
	for _, s := range l.Slots {
		if s.Kind == kindMemoText || s.Kind == kindMemoBinary {
			return true
		}
	}
	return false
}

// isAppend reports whether address lies past the last existing record.
func isAppend(address, dataOffset int64, recordSize int, recordCount int64) bool {
	return address >= dataOffset+recordCount*int64(recordSize)
}

// freeSlotAddress scans existing records' deletion bytes for the first
// tombstone; if none, returns the address past the last record, per
// spec §4.3's free-slot selection rule.
func (t *Table) freeSlotAddress() (int64, error) {
	recordSize := int64(t.layout.RecordSize)
	base := t.dataOffset()
	count := int64(t.header.RecordCount)
	for i := int64(0); i < count; i++ {
		address := base + i*recordSize
		var marker [1]byte
		if _, err := t.file.ReadAt(marker[:], address); err != nil {
			return 0, newError("table-freeslotaddress-1", err)
		}
		if marker[0] == byte(Deleted) {
			return address, nil
		}
	}
	return base + count*recordSize, nil
}

// encodeRecord serializes values (one per column, in order) through the
// layout, writing any memo-backed fields to the memo buffer.
func (t *Table) encodeRecord(values []interface{}) ([]byte, error) {
	out := make([]byte, 0, t.layout.RecordSize-1)
	for i, s := range t.layout.Slots {
		raw, err := encodeField(s, values[i], t.encoding, t.memo)
		if err != nil {
			return nil, newError("table-encoderecord-1", err)
		}
		if len(raw) != s.Length {
			return nil, newError("table-encoderecord-2", fmt.Errorf("column %q encoded to %d bytes, expected %d", s.Column.Name(), len(raw), s.Length))
		}
		out = append(out, raw...)
	}
	return out, nil
}

// liveAddresses enumerates the byte offsets of all non-tombstoned
// records, per spec §4.3's seek/tell contract.
func (t *Table) liveAddresses() ([]int64, error) {
	recordSize := int64(t.layout.RecordSize)
	base := t.dataOffset()
	count := int64(t.header.RecordCount)
	addresses := make([]int64, 0, count)
	for i := int64(0); i < count; i++ {
		address := base + i*recordSize
		var marker [1]byte
		if _, err := t.file.ReadAt(marker[:], address); err != nil {
			return nil, newError("table-liveaddresses-1", err)
		}
		if marker[0] != byte(Deleted) {
			addresses = append(addresses, address)
		}
	}
	return addresses, nil
}

// Seek positions the table at the index-th live record (0-based), per
// spec §4.3. Returns false if index is out of range or there are no
// live records.
func (t *Table) Seek(index int) (bool, error) {
	addresses, err := t.liveAddresses()
	if err != nil {
		return false, newError("table-seek-1", err)
	}
	if index < 0 || index >= len(addresses) {
		t.position = -1
		return false, nil
	}
	t.position = index
	t.seekAddress = addresses[index]
	return true, nil
}

// Tell returns the zero-based ordinal of the current position within
// the live-record sequence, and false if there is none.
func (t *Table) Tell() (int, bool) {
	if t.position < 0 {
		return 0, false
	}
	return t.position, true
}

// Delete marks the record at index as a tombstone, per spec §4.3.
func (t *Table) Delete(index int) (bool, error) {
	ok, err := t.Seek(index)
	if err != nil || !ok {
		return false, err
	}
	if _, err := t.file.WriteAt([]byte{byte(Deleted)}, t.seekAddress); err != nil {
		return false, newError("table-delete-1", err)
	}
	t.written = true
	t.recordsModified = true
	return true, nil
}

// Update rewrites the record at index, per spec §4.3. With columnName
// set, only that field is touched (byte-offset write, no other bytes
// disturbed); otherwise the whole field area is rewritten (the deletion
// byte is untouched since the record was already known live). Returns
// false if there are no records (reporting NO_RECORDS_WHILE_UPDATING) or
// index is out of range.
func (t *Table) Update(index int, values []interface{}, columnName string) (bool, error) {
	if t.header.RecordCount == 0 {
		t.config.report(SymbolNoRecordsWhileUpdating)
		return false, nil
	}
	ok, err := t.Seek(index)
	if err != nil {
		return false, newError("table-update-1", err)
	}
	if !ok {
		return false, nil
	}
	if columnName != "" {
		return true, t.updateSingleField(columnName, values)
	}
	if len(values) != len(t.columns) {
		return false, newError("table-update-2", fmt.Errorf("expected %d values, got %d", len(t.columns), len(values)))
	}
	raw, err := t.encodeRecord(values)
	if err != nil {
		t.memo.rollback()
		return false, newError("table-update-3", err)
	}
	if _, err := t.file.WriteAt(raw, t.seekAddress+1); err != nil {
		return false, newError("table-update-4", err)
	}
	t.written = true
	if err := t.memo.flush(); err != nil {
		return false, newError("table-update-5", err)
	}
	t.recordsModified = true
	return true, nil
}

// updateSingleField writes one column's value at its compiled byte
// offset, per spec §4.3/§9 ("single-value write after update
// positioning... computing each column's byte offset at layout-compile
// time and writing directly at offset").
func (t *Table) updateSingleField(columnName string, values []interface{}) error {
	for _, s := range t.layout.Slots {
		if s.Column.RawName() != columnName {
			continue
		}
		if len(values) != 1 {
			return newError("table-updatesinglefield-1", fmt.Errorf("expected exactly 1 value for column %q, got %d", columnName, len(values)))
		}
		raw, err := encodeField(s, values[0], t.encoding, t.memo)
		if err != nil {
			t.memo.rollback()
			return newError("table-updatesinglefield-2", err)
		}
		if _, err := t.file.WriteAt(raw, t.seekAddress+int64(s.Offset)); err != nil {
			return newError("table-updatesinglefield-3", err)
		}
		t.written = true
		if err := t.memo.flush(); err != nil {
			return newError("table-updatesinglefield-4", err)
		}
		t.recordsModified = true
		return nil
	}
	return newError("table-updatesinglefield-5", fmt.Errorf("unknown column %q", columnName))
}

// Gets reads the record at the current position, then advances past any
// immediately following tombstones so a subsequent Gets returns the next
// live record, per spec §4.3. Returns ok=false on EOF or short read.
func (t *Table) Gets() (Record, bool, error) {
	if t.position < 0 {
		return nil, false, nil
	}
	raw := make([]byte, t.layout.RecordSize)
	n, err := t.file.ReadAt(raw, t.seekAddress)
	if n < len(raw) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newError("table-gets-1", err)
	}
	record, err := t.decodeRow(raw[1:])
	if err != nil {
		return nil, false, newError("table-gets-2", err)
	}
	addresses, err := t.liveAddresses()
	if err != nil {
		return nil, false, newError("table-gets-3", err)
	}
	next := t.position + 1
	if next < len(addresses) {
		t.position = next
		t.seekAddress = addresses[next]
	} else {
		t.position = -1
	}
	return record, true, nil
}

// decodeRow decodes a record's field bytes (deletion byte already
// stripped) into a Record keyed by column name.
func (t *Table) decodeRow(raw []byte) (Record, error) {
	record := make(Record, len(t.layout.Slots))
	for _, s := range t.layout.Slots {
		fieldRaw := raw[s.Offset-1 : s.Offset-1+s.Length]
		value, err := decodeField(s, fieldRaw, t.encoding, t.memo)
		if err != nil {
			return nil, newError("table-decoderow-1", err)
		}
		if t.config.TrimSpaces {
			if str, ok := value.(string); ok {
				value = strings.TrimSpace(str)
			}
		}
		record[s.Column.RawName()] = value
	}
	return record, nil
}

// ForEach visits every live record from first to last, presenting each
// as a Record, per spec §4.3/§9 ("do not leak the internal scan buffer").
func (t *Table) ForEach(body func(Record) error) error {
	addresses, err := t.liveAddresses()
	if err != nil {
		return newError("table-foreach-1", err)
	}
	recordSize := t.layout.RecordSize
	for _, address := range addresses {
		raw := make([]byte, recordSize)
		if _, err := t.file.ReadAt(raw, address); err != nil {
			return newError("table-foreach-2", err)
		}
		record, err := t.decodeRow(raw[1:])
		if err != nil {
			return newError("table-foreach-3", err)
		}
		if err := body(record); err != nil {
			return err
		}
	}
	return nil
}

// GetAllData returns every live record as an ordered Row (column order),
// per spec §4.3.
func (t *Table) GetAllData() ([]Row, error) {
	addresses, err := t.liveAddresses()
	if err != nil {
		return nil, newError("table-getalldata-1", err)
	}
	recordSize := t.layout.RecordSize
	rows := make([]Row, 0, len(addresses))
	for _, address := range addresses {
		raw := make([]byte, recordSize)
		if _, err := t.file.ReadAt(raw, address); err != nil {
			return nil, newError("table-getalldata-2", err)
		}
		row := make(Row, len(t.layout.Slots))
		for i, s := range t.layout.Slots {
			fieldRaw := raw[s.Offset : s.Offset+s.Length]
			value, err := decodeField(s, fieldRaw, t.encoding, t.memo)
			if err != nil {
				return nil, newError("table-getalldata-3", err)
			}
			row[i] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Find scans every live record's raw bytes for the named column looking
// for needle, returning the matching ordinals (within the live-record
// sequence, suitable for Seek). Supplements the distilled spec per
// SPEC_FULL.md §4.3 ("Search"); not an index — a sequential scan,
// consistent with spec §1's Non-goal of indexed access.
func (t *Table) Find(columnName string, needle []byte, exact bool) ([]int, error) {
	var target *slot
	for i := range t.layout.Slots {
		if t.layout.Slots[i].Column.RawName() == columnName {
			target = &t.layout.Slots[i]
			break
		}
	}
	if target == nil {
		return nil, newError("table-find-1", fmt.Errorf("unknown column %q", columnName))
	}
	addresses, err := t.liveAddresses()
	if err != nil {
		return nil, newError("table-find-2", err)
	}
	var matches []int
	for ordinal, address := range addresses {
		raw := make([]byte, target.Length)
		if _, err := t.file.ReadAt(raw, address+int64(target.Offset)); err != nil {
			return nil, newError("table-find-3", err)
		}
		if exact {
			if bytes.Equal(bytes.TrimSpace(raw), needle) {
				matches = append(matches, ordinal)
			}
		} else if bytes.Contains(raw, needle) {
			matches = append(matches, ordinal)
		}
	}
	return matches, nil
}

// Close flushes pending header/memo state and closes the file handles,
// per spec §4.3.
func (t *Table) Close() error {
	if t.memo.isOpen() {
		hdr := t.memo.headerBytes()
		if _, err := t.memo.handle.WriteAt(hdr[:], 0); err != nil {
			return newError("table-close-1", err)
		}
		if err := t.memo.handle.Close(); err != nil {
			return newError("table-close-2", err)
		}
	}
	if t.file != nil {
		if t.headerFlushed {
			if err := t.updateHeaderCounters(); err != nil {
				return newError("table-close-3", err)
			}
		} else if t.recordsModified || t.fieldsModified {
			if err := t.flushInitialHeader(); err != nil {
				return newError("table-close-4", err)
			}
		}
		if t.written {
			if err := t.ensureEOFMarker(); err != nil {
				return newError("table-close-5", err)
			}
		}
		if err := t.file.Close(); err != nil {
			return newError("table-close-6", err)
		}
	}
	return nil
}

// ensureEOFMarker appends 0x1A if the file was modified and doesn't
// already end with it, per spec §3/§4.3.
func (t *Table) ensureEOFMarker() error {
	size, err := t.file.Size()
	if err != nil {
		return newError("table-ensureeofmarker-1", err)
	}
	if size == 0 {
		return nil
	}
	var last [1]byte
	if _, err := t.file.ReadAt(last[:], size-1); err != nil {
		return newError("table-ensureeofmarker-2", err)
	}
	if last[0] == byte(EOFMarker) {
		return nil
	}
	if _, err := t.file.WriteAt([]byte{byte(EOFMarker)}, size); err != nil {
		return newError("table-ensureeofmarker-3", err)
	}
	return nil
}

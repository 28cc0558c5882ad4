package dbase

import "io"

// Header is the decoded 32-byte DBF header plus the dialect it selects,
// per spec §4.1/§6.
type Header struct {
	Version               byte
	VersionHex            string // preserved exactly for round-trip, per spec §4.1
	Year, Month, Day       uint8
	RecordCount            uint32
	HeaderSize             uint16
	RecordSize             uint16
	IncompleteTransaction  byte
	Encryption             byte
	MDXFlag                byte
	LanguageDriver         byte
	Dialect                dialect
}

// readHeader reads exactly 32 bytes from r at offset 0 and decodes them
// per spec §4.1/§6. ok is false on a short read (<32 bytes), in which
// case the caller treats the file as an empty table with no columns.
func readHeader(r io.ReaderAt) (*Header, bool, error) {
	buf := make([]byte, 32)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, false, newError("header-readheader-1", err)
	}
	if n < 32 {
		return nil, false, nil
	}
	h := &Header{
		Version:              buf[0],
		VersionHex:           hexByte(buf[0]),
		Year:                 buf[1],
		Month:                buf[2],
		Day:                  buf[3],
		RecordCount:          leUint32(buf[4:8]),
		HeaderSize:           leUint16(buf[8:10]),
		RecordSize:           leUint16(buf[10:12]),
		IncompleteTransaction: buf[14],
		Encryption:           buf[15],
		MDXFlag:              buf[28],
		LanguageDriver:       buf[29],
	}
	h.Dialect = resolveDialect(h.Version)
	return h, true, nil
}

// bytes encodes the header back to its 32-byte on-disk form.
func (h *Header) bytes() [32]byte {
	var buf [32]byte
	buf[0] = h.Version
	buf[1] = h.Year
	buf[2] = h.Month
	buf[3] = h.Day
	putLeUint32(buf[4:8], h.RecordCount)
	putLeUint16(buf[8:10], h.HeaderSize)
	putLeUint16(buf[10:12], h.RecordSize)
	buf[14] = h.IncompleteTransaction
	buf[15] = h.Encryption
	buf[28] = h.MDXFlag
	buf[29] = h.LanguageDriver
	return buf
}

// readColumns reads 32-byte field descriptors starting at offset 32
// until the ColumnEnd sentinel (0x0D) is seen as a record's first byte,
// or EOF, per spec §4.1.
func readColumns(r io.ReaderAt, d dialect) ([]*Column, error) {
	columns := make([]*Column, 0)
	offset := int64(32)
	for {
		var rec [32]byte
		n, err := r.ReadAt(rec[:], offset)
		if err != nil && err != io.EOF {
			return nil, newError("header-readcolumns-1", err)
		}
		if n == 0 {
			break
		}
		if rec[0] == byte(ColumnEnd) {
			break
		}
		if n < 32 {
			break
		}
		columns = append(columns, columnFromDisk(rec, d))
		offset += 32
	}
	return columns, nil
}

// little-endian helpers, used instead of encoding/binary.Read on a
// struct to avoid reflection on the hot read/write path, matching the
// teacher's stated rationale in readMemo ("avoids using the reflection
// in binary.Read").
func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func putLeUint16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

package dbase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

// fieldKind is the sum type design note §9 calls for: "replace [per-field
// transform fragments] with a sum type of field kinds... No dynamic
// evaluation is needed." Computed once per column at compile time; read
// and write both dispatch on it with a plain switch, mirroring the
// teacher's tagged switch in dataToValue/valueToByteRepresentation.
type fieldKind int

const (
	kindChar fieldKind = iota
	kindNumeric
	kindFloat
	kindLogical
	kindInteger
	kindDate
	kindMemoText
	kindMemoBinary
	kindDouble
	kindCurrency
	kindDateTime
	kindVarShort      // V/X, Flagship, length 2
	kindVarShortDate  // V/X, length 3
	kindVarInt        // V/X, length 4
	kindVarDouble     // V/X, Flagship, length 8
	kindVarChar10     // V/X, Flagship, length 10
	kindVarChar       // V/X, other lengths
)

// slot is one compiled field: its column, byte offset within the record
// (after the leading deletion byte), byte length, and dispatch kind.
type slot struct {
	Column *Column
	Offset int
	Length int
	Kind   fieldKind
}

// Layout is the compiled scan/emit plan for a table's column list:
// an ordered list of fixed-width slots plus enough information to
// decode/encode each one without re-inspecting the column list.
type Layout struct {
	Slots      []slot
	RecordSize int // 1 (deletion byte) + sum of field lengths
}

// compileLayout builds a Layout for the given columns under the given
// dialect, per spec §4.2.
func compileLayout(columns []*Column, d dialect) *Layout {
	l := &Layout{Slots: make([]slot, len(columns))}
	offset := 1 // byte 0 is the deletion marker
	for i, c := range columns {
		kind := classify(c, d)
		l.Slots[i] = slot{Column: c, Offset: offset, Length: c.Length(), Kind: kind}
		offset += c.Length()
	}
	l.RecordSize = offset
	return l
}

// classify computes the fieldKind for a column, dispatching V/X on the
// dialect's Flagship flag and the column's length per spec §4.2's table.
func classify(c *Column, d dialect) fieldKind {
	switch c.Type() {
	case Character:
		return kindChar
	case Numeric:
		return kindNumeric
	case Float:
		return kindFloat
	case Logical:
		return kindLogical
	case Integer, Autoincr:
		return kindInteger
	case Date:
		return kindDate
	case Memo, General:
		return kindMemoText
	case Binary, Picture:
		return kindMemoBinary
	case Double:
		return kindDouble
	case Currency:
		return kindCurrency
	case DateTime, Timestamp:
		return kindDateTime
	case Variable, Varbinary:
		switch {
		case d.Flagship && c.Length() == 2:
			return kindVarShort
		case c.Length() == 3:
			return kindVarShortDate
		case c.Length() == 4:
			return kindVarInt
		case d.Flagship && c.Length() == 8:
			return kindVarDouble
		case d.Flagship && c.Length() == 10:
			return kindVarChar10
		default:
			return kindVarChar
		}
	}
	return kindChar
}

// decodeField reads one field's raw bytes into its Go value, per spec §4.2's
// "Read → value" column.
func decodeField(s slot, raw []byte, enc encoding.Encoding, memo *memoStore) (interface{}, error) {
	switch s.Kind {
	case kindChar:
		str, err := toUTF8String(raw, enc)
		if err != nil {
			return nil, newError("layout-decode-char-1", err)
		}
		// Drop the slot's right padding, then left-trim.
		return strings.TrimLeft(strings.TrimRight(str, " \x00"), " "), nil
	case kindNumeric:
		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "" {
			return nil, nil
		}
		if s.Column.Decimals() == 0 {
			i, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return nil, newError("layout-decode-numeric-1", err)
			}
			return i, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, newError("layout-decode-numeric-2", err)
		}
		return f, nil
	case kindFloat:
		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, newError("layout-decode-float-1", err)
		}
		return f, nil
	case kindLogical:
		if len(raw) == 0 {
			return nil, nil
		}
		switch raw[0] {
		case 'Y', 'y', 'T', 't':
			return true, nil
		case 'N', 'n', 'F', 'f':
			return false, nil
		default:
			return nil, nil
		}
	case kindInteger:
		if len(raw) != 4 {
			return nil, newError("layout-decode-integer-1", fmt.Errorf("invalid integer length %d", len(raw)))

		}
		return int32(leUint32(raw)), nil
	case kindDate:
		trimmed := strings.TrimSpace(string(raw))
		return trimmed, nil
	case kindMemoText:
		body, err := memo.read(raw)
		if err != nil {
			return nil, newError("layout-decode-memotext-1", err)
		}
		if len(body) == 0 {
			return "", nil
		}
		str, err := toUTF8String(body, enc)
		if err != nil {
			return nil, newError("layout-decode-memotext-2", err)
		}
		return str, nil
	case kindMemoBinary:
		body, err := memo.read(raw)
		if err != nil {
			return nil, newError("layout-decode-memobinary-1", err)
		}
		return body, nil
	case kindDouble:
		if len(raw) != 8 {
			return nil, newError("layout-decode-double-1", fmt.Errorf("invalid double length %d", len(raw)))
		}
		return math.Float64frombits(uint64(leUint32(raw[:4])) | uint64(leUint32(raw[4:]))<<32), nil
	case kindCurrency:
		if len(raw) != 8 {
			return nil, newError("layout-decode-currency-1", fmt.Errorf("invalid currency length %d", len(raw)))
		}
		u := uint64(leUint32(raw[:4])) | uint64(leUint32(raw[4:]))<<32
		return currencyToString(u), nil
	case kindDateTime:
		if len(raw) != 8 {
			return nil, newError("layout-decode-datetime-1", fmt.Errorf("invalid datetime length %d", len(raw)))
		}
		return julianPair{Days: int32(leUint32(raw[:4])), Milliseconds: leUint32(raw[4:])}, nil
	case kindVarShort:
		if len(raw) != 2 {
			return nil, newError("layout-decode-varshort-1", fmt.Errorf("invalid length %d", len(raw)))
		}
		return int16(leUint16(raw)), nil
	case kindVarShortDate:
		if len(raw) != 3 {
			return nil, newError("layout-decode-varshortdate-1", fmt.Errorf("invalid length %d", len(raw)))
		}
		return shortDateToString([3]byte{raw[0], raw[1], raw[2]}), nil
	case kindVarInt:
		if len(raw) != 4 {
			return nil, newError("layout-decode-varint-1", fmt.Errorf("invalid length %d", len(raw)))
		}
		return int32(leUint32(raw)), nil
	case kindVarDouble:
		if len(raw) != 8 {
			return nil, newError("layout-decode-vardouble-1", fmt.Errorf("invalid length %d", len(raw)))
		}
		return math.Float64frombits(uint64(leUint32(raw[:4])) | uint64(leUint32(raw[4:]))<<32), nil
	case kindVarChar10, kindVarChar:
		str, err := toUTF8String(raw, enc)
		if err != nil {
			return nil, newError("layout-decode-varchar-1", err)
		}
		return str, nil
	}
	return nil, newError("layout-decode-1", fmt.Errorf("unsupported field kind %d", s.Kind))
}

// encodeField converts a Go value into a field's raw bytes, per spec §4.2's
// "Write: value → " column. memo is used (and mutated) for M/G/B/P.
func encodeField(s slot, value interface{}, enc encoding.Encoding, memo *memoStore) ([]byte, error) {
	switch s.Kind {
	case kindChar:
		raw, err := fromUTF8String(toStringValue(value), enc)
		if err != nil {
			return nil, newError("layout-encode-char-1", err)
		}
		return appendSpaces(raw, s.Length), nil
	case kindNumeric:
		if value == nil {
			return prependSpaces(nil, s.Length), nil
		}
		bin := formatNumeric(value, s.Column.Decimals())
		if len(bin) > s.Length {
			return nil, newError("layout-encode-numeric-1", fmt.Errorf("value too wide for column %q", s.Column.Name()))
		}
		return prependSpaces(bin, s.Length), nil
	case kindFloat:
		if value == nil {
			return prependSpaces(nil, s.Length), nil
		}
		bin := formatNumeric(value, s.Column.Decimals())
		return prependSpaces(bin, s.Length), nil
	case kindLogical:
		switch v := value.(type) {
		case bool:
			if v {
				return []byte{'T'}, nil
			}
			return []byte{'F'}, nil
		default:
			return []byte{'?'}, nil
		}
	case kindInteger:
		i, err := toInt32Value(value)
		if err != nil {
			return nil, newError("layout-encode-integer-1", err)
		}
		raw := make([]byte, 4)
		putLeUint32(raw, uint32(i))
		return raw, nil
	case kindDate:
		str, ok := value.(string)
		if !ok {
			return nil, newError("layout-encode-date-1", fmt.Errorf("expected YYYYMMDD string, got %T", value))
		}
		raw := make([]byte, s.Length)
		copy(raw, str)
		for i := len(str); i < s.Length; i++ {
			raw[i] = ' '
		}
		return raw, nil
	case kindMemoText:
		str := toStringValue(value)
		encoded, err := fromUTF8String(str, enc)
		if err != nil {
			return nil, newError("layout-encode-memotext-1", err)
		}
		pointer, err := memo.write(encoded)
		if err != nil {
			return nil, newError("layout-encode-memotext-2", err)
		}
		return prependSpaces([]byte(strconv.FormatUint(uint64(pointer), 10)), s.Length), nil
	case kindMemoBinary:
		raw, ok := value.([]byte)
		if !ok {
			raw = []byte(toStringValue(value))
		}
		pointer, err := memo.write(raw)
		if err != nil {
			return nil, newError("layout-encode-memobinary-1", err)
		}
		return prependSpaces([]byte(strconv.FormatUint(uint64(pointer), 10)), s.Length), nil
	case kindDouble:
		f, err := toFloat64Value(value)
		if err != nil {
			return nil, newError("layout-encode-double-1", err)
		}
		raw := make([]byte, 8)
		bits := math.Float64bits(f)
		putLeUint32(raw[:4], uint32(bits))
		putLeUint32(raw[4:], uint32(bits>>32))
		return raw, nil
	case kindCurrency:
		str := toStringValue(value)
		scaled, err := currencyToBin(str)
		if err != nil {
			return nil, newError("layout-encode-currency-1", err)
		}
		raw := make([]byte, 8)
		putLeUint32(raw[:4], uint32(scaled))
		putLeUint32(raw[4:], uint32(scaled>>32))
		return raw, nil
	case kindDateTime:
		p, ok := value.(julianPair)
		if !ok {
			return nil, newError("layout-encode-datetime-1", fmt.Errorf("expected julianPair, got %T", value))
		}
		raw := make([]byte, 8)
		putLeUint32(raw[:4], uint32(p.Days))
		putLeUint32(raw[4:], p.Milliseconds)
		return raw, nil
	case kindVarShort, kindVarShortDate, kindVarInt, kindVarDouble, kindVarChar10, kindVarChar:
		return nil, newError("layout-encode-var-1", fmt.Errorf("write support for V/X column %q is not implemented", s.Column.Name()))
	}
	return nil, newError("layout-encode-1", fmt.Errorf("unsupported field kind %d", s.Kind))
}

// appendSpaces pads raw on the right with spaces to exactly length bytes,
// truncating if raw is already longer.
func appendSpaces(raw []byte, length int) []byte {
	out := make([]byte, length)
	n := copy(out, raw)
	for i := n; i < length; i++ {
		out[i] = ' '
	}
	return out
}

// prependSpaces pads raw on the left with spaces to exactly length bytes,
// matching how N/F/memo-pointer values are right-justified on disk.
func prependSpaces(raw []byte, length int) []byte {
	out := make([]byte, length)
	for i := range out {
		out[i] = ' '
	}
	if len(raw) > length {
		raw = raw[len(raw)-length:]
	}
	copy(out[length-len(raw):], raw)
	return out
}

// toStringValue renders any supported source value as a string, used by
// the C and memo-text encoders.
func toStringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatNumeric renders an int64/float64 value as the ASCII form stored
// for N/F columns.
func formatNumeric(value interface{}, decimals int) []byte {
	switch v := value.(type) {
	case int64:
		return []byte(strconv.FormatInt(v, 10))
	case int:
		return []byte(strconv.Itoa(v))
	case float64:
		if decimals == 0 && v == math.Trunc(v) {
			return []byte(strconv.FormatInt(int64(v), 10))
		}
		return []byte(strconv.FormatFloat(v, 'f', decimals, 64))
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}

func toInt32Value(value interface{}) (int32, error) {
	switch v := value.(type) {
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	case int64:
		return int32(v), nil
	case float64:
		return int32(v), nil
	default:
		return 0, fmt.Errorf("expected integer value, got %T", value)
	}
}

func toFloat64Value(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", value)
	}
}

package dbase

import "testing"

func TestNewColumnAppliesFixedDefaults(t *testing.T) {
	cases := []struct {
		typ             DataType
		wantLength      int
		wantDecimals    int
	}{
		{Logical, 1, 0},
		{Date, 8, 0},
		{Memo, 10, 0},
		{Binary, 10, 0},
		{General, 10, 0},
		{Picture, 10, 0},
		{Integer, 4, 0},
		{Autoincr, 4, 0},
		{Currency, 8, 4},
		{DateTime, 8, 0},
		{Timestamp, 8, 0},
	}
	for _, c := range cases {
		col, err := NewColumn("F", c.typ, 0, 0, false)
		if err != nil {
			t.Fatalf("NewColumn(%s): %v", c.typ, err)
		}
		if col.Length() != c.wantLength || col.Decimals() != c.wantDecimals {
			t.Errorf("%s: length=%d decimals=%d, want %d, %d", c.typ, col.Length(), col.Decimals(), c.wantLength, c.wantDecimals)
		}
	}
}

func TestNewColumnRequiresExplicitLength(t *testing.T) {
	if _, err := NewColumn("C", Character, 0, 0, false); err == nil {
		t.Fatalf("Character column with length 0 should fail")
	}
	if _, err := NewColumn("N", Numeric, 0, 0, false); err == nil {
		t.Fatalf("Numeric column with length 0 should fail")
	}
}

func TestNewColumnRejectsOverLongLength(t *testing.T) {
	if _, err := NewColumn("N", Numeric, MaxNumericLength+1, 0, false); err == nil {
		t.Fatalf("Numeric column over MaxNumericLength should fail")
	}
	if _, err := NewColumn("C", Character, MaxCharacterLength+1, 0, false); err == nil {
		t.Fatalf("Character column over MaxCharacterLength should fail")
	}
}

func TestNewColumnRejectsVarAndUnsupported(t *testing.T) {
	if _, err := NewColumn("V", Variable, 2, 0, false); err == nil {
		t.Fatalf("Variable column should fail on write (not supported)")
	}
	if _, err := NewColumn("X", Varbinary, 2, 0, false); err == nil {
		t.Fatalf("Varbinary column should fail on write (not supported)")
	}
	if _, err := NewColumn("Z", DataType('Z'), 1, 0, false); err == nil {
		t.Fatalf("unknown type should fail")
	}
}

func TestColumnNameTruncation(t *testing.T) {
	col, err := NewColumn("VERYLONGCOLUMNNAME", Character, 5, 0, false)
	if err != nil {
		t.Fatalf("NewColumn: %v", err)
	}
	if len(col.Name()) != MaxColumnNameLength {
		t.Fatalf("Name() length = %d, want %d", len(col.Name()), MaxColumnNameLength)
	}
	if col.RawName() != "VERYLONGCOLUMNNAME" {
		t.Fatalf("RawName() = %q, want original", col.RawName())
	}
}

func TestColumnToDiskFromDiskRoundTrip(t *testing.T) {
	col, err := NewColumn("AMOUNT", Numeric, 12, 3, true)
	if err != nil {
		t.Fatalf("NewColumn: %v", err)
	}
	d := resolveDialect(0x83) // no DecimalAsHighByte
	raw := col.toDisk(d)
	back := columnFromDisk(raw, d)
	if back.RawName() != "AMOUNT" || back.Type() != Numeric || back.Length() != 12 || back.Decimals() != 3 || !back.Indexed() {
		t.Fatalf("round trip = %+v, want name AMOUNT type N length 12 decimals 3 indexed", back)
	}
}

package dbase

import "testing"

// Code-page round-trip: for any recognized language-driver code, a
// printable ASCII string survives decode→encode unchanged (ASCII is a
// subset of every charset in the §6 table).
func TestCodePageRoundTrip(t *testing.T) {
	codes := []byte{
		0x01, 0x02, 0x03, 0x04, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A, 0x6B,
		0x78, 0x7A, 0x7D, 0x7E, 0x8B, 0x96, 0x98, 0xC8, 0xC9, 0xCA, 0xCB,
	}
	for _, code := range codes {
		cp, ok := lookupCodePage(code)
		if !ok {
			t.Fatalf("lookupCodePage(%#x) not found", code)
		}
		decoded, err := toUTF8String([]byte("HELLO"), cp.Encoding)
		if err != nil {
			t.Fatalf("toUTF8String(%s): %v", cp.Name, err)
		}
		if decoded != "HELLO" {
			t.Fatalf("toUTF8String(%s) = %q, want %q", cp.Name, decoded, "HELLO")
		}
		encoded, err := fromUTF8String(decoded, cp.Encoding)
		if err != nil {
			t.Fatalf("fromUTF8String(%s): %v", cp.Name, err)
		}
		if string(encoded) != "HELLO" {
			t.Fatalf("fromUTF8String(%s) round trip = %q, want %q", cp.Name, encoded, "HELLO")
		}
	}
}

func TestLookupCodePageUnknown(t *testing.T) {
	if _, ok := lookupCodePage(0xEE); ok {
		t.Fatalf("lookupCodePage(0xEE) should not be recognized")
	}
}

func TestCodeForEncodingName(t *testing.T) {
	code, ok := codeForEncodingName("cp1252")
	if !ok || code != 0x03 {
		t.Fatalf("codeForEncodingName(cp1252) = %#x, %v, want 0x03, true", code, ok)
	}
	if _, ok := codeForEncodingName("nonexistent"); ok {
		t.Fatalf("codeForEncodingName(nonexistent) should not be found")
	}
}

func TestNilEncodingPassesThrough(t *testing.T) {
	decoded, err := toUTF8String([]byte("plain"), nil)
	if err != nil || decoded != "plain" {
		t.Fatalf("toUTF8String(nil enc) = %q, %v, want %q, nil", decoded, err, "plain")
	}
	encoded, err := fromUTF8String("plain", nil)
	if err != nil || string(encoded) != "plain" {
		t.Fatalf("fromUTF8String(nil enc) = %q, %v, want %q, nil", encoded, err, "plain")
	}
}

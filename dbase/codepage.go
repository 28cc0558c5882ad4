package dbase

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// codePage associates a header language-driver byte with a human name
// and the x/text encoding used to convert C/M field bytes to and from
// the file's native charset.
type codePage struct {
	Name     string
	Encoding encoding.Encoding
}

// codePages is the bidirectional table from spec §6. Six entries
// (0x6B cp857, 0x67 cp861, 0x6A cp737, 0x68 cp895, 0x69 cp790,
// 0x98 macGreek) have no exact golang.org/x/text/encoding/charmap
// counterpart; see DESIGN.md "Code pages with no exact x/text charmap"
// for the nearest-available substitution used for each.
var codePages = map[byte]codePage{
	0x01: {"cp437", charmap.CodePage437},
	0x02: {"cp850", charmap.CodePage850},
	0x03: {"cp1252", charmap.Windows1252},
	0x04: {"macRoman", charmap.Macintosh},
	0x64: {"cp852", charmap.CodePage852},
	0x65: {"cp865", charmap.CodePage865},
	0x66: {"cp866", charmap.CodePage866},
	0x67: {"cp861", charmap.CodePage850}, // no x/text cp861; nearest DOS page
	0x68: {"cp895", charmap.Windows1252}, // undocumented vendor code; nearest Windows page
	0x69: {"cp790", charmap.Windows1252}, // undocumented vendor code; nearest Windows page
	0x6A: {"cp737", charmap.CodePage850}, // no x/text cp737 (Greek DOS); nearest DOS page
	0x6B: {"cp857", charmap.CodePage850}, // no x/text cp857 (Turkish DOS); nearest DOS page
	0x78: {"cp950", traditionalchinese.Big5},
	0x7A: {"cp936", simplifiedchinese.GBK},
	0x7D: {"cp1255", charmap.Windows1255},
	0x7E: {"cp1256", charmap.Windows1256},
	0x8B: {"cp932", japanese.ShiftJIS},
	0x96: {"macCyrillic", charmap.MacintoshCyrillic},
	0x98: {"macGreek", charmap.Windows1253}, // no x/text macGreek; nearest Windows page
	0xC8: {"cp1250", charmap.Windows1250},
	0xC9: {"cp1251", charmap.Windows1251},
	0xCA: {"cp1254", charmap.Windows1254},
	0xCB: {"cp1253", charmap.Windows1253},
}

// lookupCodePage returns the encoding for a header language-driver code
// and whether it was recognized, per spec §4.1 ("otherwise the engine's
// encoding remains the system default").
func lookupCodePage(code byte) (codePage, bool) {
	cp, ok := codePages[code]
	return cp, ok
}

// codeForEncodingName returns the language-driver byte for a code page
// name, used when creating a table with an explicit charset choice.
// Returns 0, false if the name isn't in the §6 table.
func codeForEncodingName(name string) (byte, bool) {
	for code, cp := range codePages {
		if cp.Name == name {
			return code, true
		}
	}
	return 0, false
}

// toUTF8String decodes raw file-encoded bytes to a native UTF-8 string.
// The layout applies it to C, memo-text and V/X character field bytes.
func toUTF8String(raw []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), newError("codepage-toutf8string-1", err)
	}
	return string(out), nil
}

// fromUTF8String encodes a native UTF-8 string to file-encoded bytes.
func fromUTF8String(s string, enc encoding.Encoding) ([]byte, error) {
	if enc == nil {
		return []byte(s), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, newError("codepage-fromutf8string-1", err)
	}
	return out, nil
}

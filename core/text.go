package core

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

var utf16BOM = []byte{0xFE, 0xFF}

// Text decodes s as a PDF text string. Strings starting with the UTF-16BE byte
// order mark are decoded as UTF-16; anything else is treated as
// PDFDocEncoding, which agrees with Latin-1 for the printable range.
func (s String) Text() string {
	b := []byte(s)
	if bytes.HasPrefix(b, utf16BOM) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err == nil {
			return string(out)
		}
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// TextString encodes text as a PDF text string. Pure ASCII is stored as is;
// anything else is written as UTF-16BE with a byte order mark.
func TextString(text string) String {
	ascii := true
	for i := 0; i < len(text); i++ {
		if text[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return String(text)
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(text)
	if err != nil {
		return String(text)
	}
	return String(out)
}

package input

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText detects the encoding of raw text bytes and returns UTF-8.
// Checks BOMs first, then validates the bytes as UTF-8, and finally falls
// back to Latin-1, which is what the upstream order exports are encoded in.
func DecodeText(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}

	if bytes.HasPrefix(data, bomUTF16LE) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data[2:])
		if err != nil {
			return nil, fmt.Errorf("UTF-16 LE decode failed: %w", err)
		}
		return decoded, nil
	}

	if bytes.HasPrefix(data, bomUTF16BE) {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data[2:])
		if err != nil {
			return nil, fmt.Errorf("UTF-16 BE decode failed: %w", err)
		}
		return decoded, nil
	}

	if utf8.Valid(data) {
		return data, nil
	}

	// Latin-1 maps every byte to the same Unicode code point, so this
	// conversion cannot fail.
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("Latin-1 decode failed: %w", err)
	}
	return decoded, nil
}

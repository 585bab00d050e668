package loader

import (
	"bytes"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText turns raw resource bytes into UTF-8 text. A UTF-8 BOM is
// stripped; bytes that are not valid UTF-8 are decoded as ISO 8859-1, which
// the catalog's legacy extracts use.
func decodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", eris.Wrap(err, "load: decode latin-1")
	}
	return string(decoded), nil
}

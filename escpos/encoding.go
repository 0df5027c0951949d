package escpos

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is the name of the character set used for text sent to the
// printer.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	CP437  Encoding = "cp437"
	CP850  Encoding = "cp850"
	CP866  Encoding = "cp866"
	CP1252 Encoding = "cp1252"
	Latin1 Encoding = "latin1"
)

// ErrUnknownEncoding is returned by [ParseEncoding].
var ErrUnknownEncoding = errors.New("unknown encoding")

var codepages = map[Encoding]*charmap.Charmap{
	CP437:  charmap.CodePage437,
	CP850:  charmap.CodePage850,
	CP866:  charmap.CodePage866,
	CP1252: charmap.Windows1252,
	Latin1: charmap.ISO8859_1,
}

var encodingAliases = map[string]Encoding{
	"":             UTF8,
	"utf8":         UTF8,
	"iso-8859-1":   Latin1,
	"iso8859-1":    Latin1,
	"windows-1252": CP1252,
}

// ParseEncoding returns the encoding by name, empty name is UTF-8.
func ParseEncoding(name string) (Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if e, ok := encodingAliases[name]; ok {
		return e, nil
	}
	e := Encoding(name)
	if e == UTF8 {
		return e, nil
	}
	if _, ok := codepages[e]; ok {
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// AllEncodings returns the sorted list of supported encoding names.
func AllEncodings() []string {
	names := []string{string(UTF8)}
	for e := range codepages {
		names = append(names, string(e))
	}
	sort.Strings(names)
	return names
}

// Encode converts s to the encoding.  Runes missing from a code page are
// replaced with '?'.  Unknown encodings and UTF-8 return s as is.
func (e Encoding) Encode(s string) []byte {
	cm, ok := codepages[e]
	if !ok {
		return []byte(s)
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cm.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

package feed

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// openCSV opens a government CSV export and returns a reader that handles
// the encodings seen in practice: UTF-8 with or without BOM, and
// Windows-1252 (detected by sniffing the first chunk for invalid UTF-8).
// The caller must close the returned io.Closer.
func openCSV(path string) (*csv.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "feed: open %s", path)
	}

	br := bufio.NewReaderSize(f, 64*1024)

	peek, err := br.Peek(3)
	if err == nil && bytes.Equal(peek, utf8BOM) {
		_, _ = br.Discard(3)
	}

	var r io.Reader = br
	if !sniffUTF8(br) {
		r = charmap.Windows1252.NewDecoder().Reader(br)
	}

	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	return cr, f, nil
}

// sniffUTF8 peeks at the buffered data and reports whether it is valid UTF-8.
// A multi-byte sequence cut off at the sniff window is tolerated, but only
// when the window was actually filled: an invalid byte near end-of-file is
// bad data, not truncation.
func sniffUTF8(br *bufio.Reader) bool {
	const window = 32 * 1024
	peek, _ := br.Peek(window)
	truncated := len(peek) == window
	for len(peek) > 0 {
		r, size := utf8.DecodeRune(peek)
		if r == utf8.RuneError && size == 1 {
			return truncated && len(peek) < utf8.UTFMax
		}
		peek = peek[size:]
	}
	return true
}

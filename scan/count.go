package scan

import (
	"bytes"
	"io"
)

const chunkSize = 32 * 1024

var newline = []byte{'\n'}

// CountLines returns the number of '\n' bytes read from r.
// Content is never decoded, so invalid or mixed encodings count the same way.
// A final line without a terminator is not counted.
func CountLines(r io.Reader) (int, error) {
	buf := make([]byte, chunkSize)
	count := 0
	for {
		n, err := r.Read(buf)
		count += bytes.Count(buf[:n], newline)
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

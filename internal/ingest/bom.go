package ingest

import "io"

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and drops a leading UTF-8 BOM.
// Spreadsheet exports on Windows commonly start with one, and it would
// otherwise end up in the first header name.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	pending []byte
	buf     [3]byte
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 3 && r.buf == utf8BOM {
			n = 0
		}
		r.pending = r.buf[:n]
		if err == io.EOF && n == 0 {
			return 0, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}
	return r.reader.Read(p)
}

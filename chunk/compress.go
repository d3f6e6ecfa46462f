package chunk

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Sector compression schemes, the first byte of every region sector.
const (
	CompressGzip = 1
	CompressZlib = 2
	CompressNone = 3
)

func mcDecompress(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("mcDecompress: %w", ErrInvalidChunk)
	}
	var r io.Reader = bytes.NewReader(data[1:])
	var err error
	switch data[0] {
	default:
		err = fmt.Errorf("compression %d: %w", data[0], ErrUnKnownCompression)
	case CompressGzip:
		r, err = gzip.NewReader(r)
	case CompressZlib:
		r, err = zlib.NewReader(r)
	case CompressNone:
	}
	if err != nil {
		return nil, fmt.Errorf("mcDecompress: %w", err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("mcDecompress: %w", err)
	}
	return b, nil
}

func mcCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(CompressZlib)
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("mcCompress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("mcCompress: %w", err)
	}
	return buf.Bytes(), nil
}

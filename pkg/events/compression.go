package events

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressionType defines the compression algorithm to use
type CompressionType int

const (
	// NoCompression indicates no compression
	NoCompression CompressionType = iota
	// ZstdCompression indicates Zstandard compression
	ZstdCompression
)

// DefaultCompression is the default compression algorithm for file logs
var DefaultCompression = ZstdCompression

var (
	// encoder and decoder for zstd are reusable and thread-safe
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// CompressData compresses a byte slice using the specified compression algorithm
func CompressData(data []byte, compressionType CompressionType) ([]byte, error) {
	if compressionType == NoCompression {
		return data, nil
	}
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// DecompressData decompresses a byte slice using the specified compression algorithm
func DecompressData(data []byte, compressionType CompressionType) ([]byte, error) {
	if compressionType == NoCompression {
		return data, nil
	}
	return zstdDecoder.DecodeAll(data, nil)
}

// NewCompressedWriter returns a writer that compresses data before writing
func NewCompressedWriter(w io.Writer, compressionType CompressionType) io.Writer {
	if compressionType == NoCompression {
		return w
	}
	encoder, _ := zstd.NewWriter(w)
	return encoder
}

// NewCompressedReader returns a reader that decompresses data after reading
func NewCompressedReader(r io.Reader, compressionType CompressionType) (io.Reader, error) {
	if compressionType == NoCompression {
		return r, nil
	}
	return zstd.NewReader(r)
}

// CloseCompressedWriter closes the compressed writer if needed
func CloseCompressedWriter(w io.Writer, compressionType CompressionType) error {
	if compressionType == NoCompression {
		return nil
	}
	if zw, ok := w.(*zstd.Encoder); ok {
		return zw.Close()
	}
	return nil
}

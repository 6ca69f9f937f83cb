package vm

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// zstd decoders are safe for concurrent DecodeAll calls.
var zstdDecoder, _ = zstd.NewReader(nil)

// LoadImage reads a raw memory image from path. Zstandard-compressed images
// are decompressed transparently.
func LoadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return DecodeImage(data)
}

// DecodeImage returns data unchanged unless it is a zstd frame.
func DecodeImage(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress image: %w", err)
	}
	return out, nil
}

// SaveImage writes memory to path uncompressed.
func SaveImage(path string, memory []byte) error {
	if err := os.WriteFile(path, memory, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

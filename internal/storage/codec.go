package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Payload layout: 1-byte method + 4-byte LE uncompressed size + data.
const (
	methodRaw byte = 0
	methodLZ4 byte = 1

	headerSize = 5
)

// compress packs data as an lz4 block, or stores it raw when lz4 does not
// shrink it.
func compress(data []byte) ([]byte, error) {
	out := make([]byte, headerSize+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out[1:headerSize], uint32(len(data)))

	n, err := lz4.CompressBlock(data, out[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || n >= len(data) {
		out = append(out[:headerSize], data...)
		out[0] = methodRaw
		return out, nil
	}
	out[0] = methodLZ4
	return out[:headerSize+n], nil
}

func decompress(blob []byte) ([]byte, error) {
	if len(blob) < headerSize {
		return nil, fmt.Errorf("payload too short (%d bytes)", len(blob))
	}
	size := binary.LittleEndian.Uint32(blob[1:headerSize])
	body := blob[headerSize:]

	switch blob[0] {
	case methodRaw:
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("raw payload size %d, header says %d", len(body), size)
		}
		return body, nil
	case methodLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("unknown payload method %d", blob[0])
	}
}

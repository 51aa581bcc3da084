package history

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Codecs recorded in the snapshots.codec column.
const (
	codecLZ4 = "lz4"
	codecRaw = "raw"
)

// compressBlob block-compresses a serialized repository. Incompressible
// payloads are stored raw; CompressBlock signals that with a zero length.
func compressBlob(raw []byte) ([]byte, string, error) {
	if len(raw) == 0 {
		return nil, codecRaw, nil
	}
	buf := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, buf, nil)
	if err != nil {
		return nil, "", fmt.Errorf("compress snapshot blob: %w", err)
	}
	if n == 0 || n >= len(raw) {
		return raw, codecRaw, nil
	}
	return buf[:n], codecLZ4, nil
}

// decompressBlob reverses compressBlob. rawSize is the stored uncompressed
// length; lz4 block decoding needs the destination sized up front.
func decompressBlob(data []byte, codec string, rawSize int) ([]byte, error) {
	switch codec {
	case codecRaw, "":
		return data, nil
	case codecLZ4:
		if rawSize <= 0 {
			return nil, fmt.Errorf("lz4 snapshot blob missing raw size")
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot blob: %w", err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("unknown snapshot codec %q", codec)
	}
}

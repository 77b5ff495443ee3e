package cryptoutil

import (
	"io"

	"github.com/minio/sio"
)

// EncryptReader wraps r so only ciphertext leaves the host.
func EncryptReader(r io.Reader, key []byte) (io.Reader, error) {
	return sio.EncryptReader(r, sio.Config{Key: key})
}

// EncryptedSize returns the ciphertext size for a plaintext of n bytes.
func EncryptedSize(n int64) (int64, error) {
	sz, err := sio.EncryptedSize(uint64(n))
	return int64(sz), err
}

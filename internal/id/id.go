package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var reader io.Reader = rand.Reader

// Random returns n characters drawn uniformly from [A-Za-z0-9].
func Random(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}

	limit := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphanumeric[v.Int64()]
	}
	return string(out), nil
}

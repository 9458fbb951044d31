//go:build !govips || !cgo

package normalizer

func Startup() error {
	return nil
}

func Shutdown() {}

func newNormalizer() (Normalizer, error) {
	return stdlibNormalizer{}, nil
}

//go:build !unix

package shm

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

func osMapFile(path string, size int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

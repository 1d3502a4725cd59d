//go:build !darwin

package keychain

func load(service, account string) ([]byte, error) {
	return nil, ErrUnsupported
}

func save(service, account string, data []byte) error {
	return ErrUnsupported
}

func remove(service, account string) error {
	return ErrUnsupported
}

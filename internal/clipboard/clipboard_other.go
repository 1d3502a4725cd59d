//go:build !darwin

package clipboard

var errWriteFailed = ErrUnsupported

// GetChangeCount always reports zero so the monitor never fires
func GetChangeCount() int {
	return 0
}

// Read is unavailable without a supported pasteboard
func Read() (*Content, error) {
	return nil, ErrUnsupported
}

// Write is unavailable without a supported pasteboard
func Write(content *Content) bool {
	return false
}

// Package keychain stores small secrets (the AI provider key, Dropbox
// tokens) in the operating system credential store.
package keychain

import "errors"

// Service names under which clipdeck stores secrets
const (
	ServiceAPIKey  = "com.clipdeck.apikey"
	ServiceDropbox = "com.clipdeck.dropbox"
)

var (
	ErrNotFound    = errors.New("keychain item not found")
	ErrUnsupported = errors.New("keychain not supported on this platform")
)

// Item addresses one secret
type Item struct {
	Service string
	Account string
}

// Load returns the secret, or ErrNotFound
func (i Item) Load() ([]byte, error) {
	return load(i.Service, i.Account)
}

// Save stores the secret, replacing any previous value
func (i Item) Save(data []byte) error {
	return save(i.Service, i.Account, data)
}

// Delete removes the secret. Deleting a missing item is not an error.
func (i Item) Delete() error {
	return remove(i.Service, i.Account)
}

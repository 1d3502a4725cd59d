//go:build darwin

package keychain

import (
	"errors"
	"fmt"

	"github.com/keybase/go-keychain"
)

func load(service, account string) ([]byte, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(service)
	query.SetAccount(account)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		return nil, fmt.Errorf("keychain query failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", service, account, ErrNotFound)
	}
	return results[0].Data, nil
}

func save(service, account string, data []byte) error {
	_ = remove(service, account)

	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(service)
	item.SetAccount(account)
	item.SetLabel("clipdeck")
	item.SetData(data)
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	if err := keychain.AddItem(item); err != nil {
		return fmt.Errorf("keychain save failed: %w", err)
	}
	return nil
}

func remove(service, account string) error {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(service)
	item.SetAccount(account)

	err := keychain.DeleteItem(item)
	if err != nil && !errors.Is(err, keychain.ErrorItemNotFound) {
		return fmt.Errorf("keychain delete failed: %w", err)
	}
	return nil
}

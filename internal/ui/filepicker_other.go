//go:build !darwin

package ui

// ShowFolderPicker has no native dialog here; it always reports a cancel
func ShowFolderPicker() string {
	return ""
}

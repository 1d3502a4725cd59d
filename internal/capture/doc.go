// Package capture turns clipboard changes into history items and writes
// items back to the clipboard.
package capture

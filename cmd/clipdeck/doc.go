// Command clipdeck runs the clipboard manager and exposes its history,
// templates, AI augmentation and backups on the command line.
//
// With no arguments it starts the menubar app. `clipdeck serve` runs the
// capture loop and local API without a tray icon.
package main

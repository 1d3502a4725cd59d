package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mindmorass/clipdeck/internal/app"
	"github.com/mindmorass/clipdeck/internal/storage"
)

// envPassphrase supplies the backup passphrase non-interactively
const envPassphrase = "CLIPDECK_PASSPHRASE"

var errNoPassphrase = errors.New("passphrase required: set " + envPassphrase + " or run from a terminal")

// promptPassphrase is replaced in tests
var promptPassphrase = func(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoPassphrase
	}
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(data), nil
}

func readPassphrase(confirm bool) (string, error) {
	if p := os.Getenv(envPassphrase); p != "" {
		return p, nil
	}
	p, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty passphrase")
	}
	if confirm {
		again, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if again != p {
			return "", errors.New("passphrases do not match")
		}
	}
	return p, nil
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var location string
	var encrypt bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Back up the history and templates to the configured destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var passphrase string
			if encrypt {
				p, err := readPassphrase(true)
				if err != nil {
					return err
				}
				passphrase = p
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				header, err := a.Export(cmd.Context(), location, passphrase)
				if err != nil {
					return err
				}
				printHeader(cmd, "Exported", header)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Override the backup location (folder, s3://bucket/prefix, or Dropbox path)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Encrypt the backup with a passphrase")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var location string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge a backup into the history; existing items are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				if dryRun {
					info, err := a.InspectBackup(cmd.Context(), location)
					if err != nil {
						return err
					}
					printHeader(cmd, "Found", info.Header)
					fmt.Fprintf(cmd.OutOrStdout(), "location: %s\nlast written: %s\n",
						info.Location, info.ModTime.Local().Format("2006-01-02 15:04"))
					return nil
				}
				res, header, err := a.Import(cmd.Context(), location, "")
				if errors.Is(err, storage.ErrPassphraseRequired) {
					passphrase, perr := readPassphrase(false)
					if perr != nil {
						return perr
					}
					res, header, err = a.Import(cmd.Context(), location, passphrase)
				}
				if err != nil {
					return err
				}
				printHeader(cmd, "Imported", header)
				fmt.Fprintf(cmd.OutOrStdout(), "items: %d added, %d skipped\ntemplates: %d added, %d skipped\n",
					res.ItemsAdded, res.ItemsSkipped, res.TemplatesAdded, res.TemplatesSkipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Override the backup location")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Describe the stored backup without importing it")
	return cmd
}

func printHeader(cmd *cobra.Command, verb string, header *storage.FileHeader) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s backup %s from %s (%s): %d items, %d templates, encrypted: %s\n",
		verb,
		header.ID,
		header.SourceMachine,
		header.CreatedAt.Local().Format("2006-01-02 15:04"),
		header.ItemCount,
		header.TemplateCount,
		yesNo(header.Encrypted),
	)
}

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mindmorass/clipdeck/internal/app"
	"github.com/mindmorass/clipdeck/internal/augment"
)

func newAugmentCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newOCRCommand(ctx),
		newAnalyzeCommand(ctx),
		newFormatCommand(ctx),
		newTranslateCommand(ctx),
	}
}

// printText writes a text result; degraded output is still printed but the
// command fails
func printText(cmd *cobra.Command, asJSON bool, res augment.TextResult) error {
	if asJSON {
		return writeJSON(cmd, res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	if res.Degraded() {
		return degradedError(res.Cause)
	}
	return nil
}

func newOCRCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ocr <image-file>",
		Short: "Extract text from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mimeType := http.DetectContentType(data)
			if !strings.HasPrefix(mimeType, "image/") {
				return fmt.Errorf("%s is not an image (%s)", args[0], mimeType)
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				res := a.Library().Augment().ExtractText(cmd.Context(), base64.StdEncoding.EncodeToString(data), mimeType)
				return printText(cmd, asJSON, res)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Detect the language of a code snippet and whether it holds secrets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				res := a.Library().Augment().AnalyzeCode(cmd.Context(), code)
				if asJSON {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "language:  %s\nsensitive: %s\n", res.Language, yesNo(res.IsSensitive))
				if res.Degraded() {
					return degradedError(res.Cause)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newFormatCommand(ctx *commandContext) *cobra.Command {
	var language, id string
	var apply, asJSON bool

	cmd := &cobra.Command{
		Use:   "format [file|-]",
		Short: "Beautify code from a file, stdin, or a history item (--id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != "" {
				if len(args) > 0 {
					return errors.New("pass either --id or a file, not both")
				}
				return ctx.withApp(cmd.Context(), func(a *app.App) error {
					res, err := a.Library().Format(cmd.Context(), id, apply)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd, res)
					}
					return printText(cmd, false, res.Result)
				})
			}
			if apply {
				return errors.New("--apply requires --id")
			}

			code, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			if language == "" {
				language = augment.DefaultLanguage
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				return printText(cmd, asJSON, a.Library().Augment().FormatCode(cmd.Context(), code, language))
			})
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Language of the snippet")
	cmd.Flags().StringVar(&id, "id", "", "Format a history item")
	cmd.Flags().BoolVar(&apply, "apply", false, "Replace the item's content with the formatted code")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var target, id string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate --to <language> [text...]",
		Short: "Translate text, stdin, or a history item (--id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(target) == "" {
				return errors.New("--to is required")
			}
			if id != "" {
				return ctx.withApp(cmd.Context(), func(a *app.App) error {
					res, err := a.Library().Translate(cmd.Context(), id, target)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd, res)
					}
					return printText(cmd, false, res.Result)
				})
			}

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				return printText(cmd, asJSON, a.Library().Augment().Translate(cmd.Context(), strings.TrimSpace(text), target))
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "Target language (name or code such as fr, pt-BR)")
	cmd.Flags().StringVar(&id, "id", "", "Translate a history item")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

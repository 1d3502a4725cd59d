package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mindmorass/clipdeck/internal/app"
	"github.com/mindmorass/clipdeck/internal/item"
)

func newTemplateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Manage reusable templates",
	}
	cmd.AddCommand(newTemplateAddCommand(ctx))
	cmd.AddCommand(newTemplateListCommand(ctx))
	cmd.AddCommand(newTemplateRemoveCommand(ctx))
	return cmd
}

func newTemplateAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [content...]",
		Short: "Create a template (reads content from stdin when omitted)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				tpl, err := a.Library().AddTemplate(cmd.Context(), args[0], strings.TrimRight(content, "\n"))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tpl.ID)
				return nil
			})
		},
	}
}

func newTemplateListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates by name",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				templates, err := a.Library().Templates(cmd.Context())
				if err != nil {
					return err
				}
				if templates == nil {
					templates = []*item.Template{}
				}
				rows := make([][]string, 0, len(templates))
				for _, tpl := range templates {
					rows = append(rows, []string{tpl.ID, tpl.Name, item.MakePreview(item.TypeText, tpl.Content)})
				}
				return printList(cmd, asJSON, templates, []string{"ID", "Name", "Content"}, rows, nil)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newTemplateRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete templates",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				for _, id := range args {
					if err := a.Library().DeleteTemplate(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete template %s: %w", id, err)
					}
				}
				return nil
			})
		},
	}
}

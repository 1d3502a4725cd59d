package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mindmorass/clipdeck/internal/app"
	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/library"
	"github.com/mindmorass/clipdeck/internal/store"
)

func newItemCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newListCommand(ctx),
		newShowCommand(ctx),
		newRemoveCommand(ctx),
		newTagCommand(ctx),
		newTagsCommand(ctx),
		newEnrichCommand(ctx),
		newPruneCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var typeName string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Add an item to the history (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var t item.Type
			if typeName != "" {
				if t, err = item.ParseType(typeName); err != nil {
					return err
				}
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				it, err := a.Library().Add(cmd.Context(), library.AddRequest{
					Type:    t,
					Content: strings.TrimRight(content, "\n"),
					Tags:    tags,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", it.ID, it.Type)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Item type (detected when omitted)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var filter store.Filter
	var typeName string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List history items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if typeName != "" {
				t, err := item.ParseType(typeName)
				if err != nil {
					return err
				}
				filter.Type = t
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				items, err := a.Library().List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if items == nil {
					items = []*item.ClipboardItem{}
				}
				rows := make([][]string, 0, len(items))
				for _, it := range items {
					rows = append(rows, []string{
						it.ID,
						string(it.Type),
						formatCreated(it.CreatedAt),
						strings.Join(it.Tags, ", "),
						listPreview(it),
					})
				}
				return printList(cmd, asJSON, items,
					[]string{"ID", "Type", "Created", "Tags", "Preview"}, rows, nil)
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Only items of this type")
	cmd.Flags().StringVar(&filter.Tag, "tag", "", "Only items with this tag")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Substring to search for")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "Maximum number of items")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "Items to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func listPreview(it *item.ClipboardItem) string {
	switch {
	case it.Type == item.TypeImage:
		return "[image]"
	case it.Metadata.Sensitive():
		return "[sensitive]"
	}
	runes := []rune(it.Preview)
	if len(runes) > 60 {
		return string(runes[:59]) + "…"
	}
	return it.Preview
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an item as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				it, err := a.Library().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, it)
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete items from the history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				for _, id := range args {
					if err := a.Library().Delete(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
				}
				return nil
			})
		},
	}
}

func newTagCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "tag <id> <tag>...",
		Short: "Add tags to an item (or remove them with --remove)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				var tags []string
				var err error
				for _, tag := range args[1:] {
					if remove {
						tags, err = a.Library().RemoveTag(cmd.Context(), id, tag)
					} else {
						tags, err = a.Library().AddTag(cmd.Context(), id, tag)
					}
					if err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the tags instead")
	return cmd
}

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags by usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				tags, err := a.Library().Tags(cmd.Context())
				if err != nil {
					return err
				}
				if tags == nil {
					tags = []item.Tag{}
				}
				rows := make([][]string, 0, len(tags))
				for _, tag := range tags {
					rows = append(rows, []string{tag.Name, fmt.Sprint(tag.Count)})
				}
				return printList(cmd, asJSON, tags, []string{"Tag", "Items"}, rows,
					[]columnAlignment{alignLeft, alignRight})
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <id>",
		Short: "Run OCR on an image item or analysis on a code item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Library().Enrich(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
				if !res.Applied {
					return degradedError(res.Cause)
				}
				return nil
			})
		},
	}
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete untagged items beyond the newest --keep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				n := keep
				if !cmd.Flags().Changed("keep") {
					n = a.Config().HistoryLimit
				}
				removed, err := a.Library().Prune(cmd.Context(), n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Items to keep (default history_limit)")
	return cmd
}

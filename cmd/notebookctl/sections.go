package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/workspace"
)

func newSectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sections",
		Aliases: []string{"section", "s"},
		Short:   "Read and edit the ordered sections of an analysis",
	}
	cmd.AddCommand(
		newSectionsListCmd(a),
		newSectionsAddCmd(a),
		newSectionsEditCmd(a),
		newSectionsReorderCmd(a),
		newSectionsDeleteCmd(a),
	)
	return cmd
}

func (a *app) printSections(sections []models.Section) error {
	return a.render(mapViews(sections, newSectionView), func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ORDER\tID\tTITLE\tCONTENT")
		for _, s := range sections {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.SectionOrder, s.ID, s.Title, preview(s.ContentText(), 48))
		}
	})
}

// preview shortens text to one line of at most n runes.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return text
}

func newSectionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <analysis-id>",
		Short: "List an analysis's sections in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printSections(s.store.Sections())
		},
	}
}

func newSectionsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <analysis-id> [title]",
		Short: "Append a section",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var title string
			if len(args) == 2 {
				title = args[1]
			}
			if _, err := s.store.CreateSection(cmd.Context(), title); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			return a.printSections(s.store.Sections())
		},
	}
}

func newSectionsEditCmd(a *app) *cobra.Command {
	var (
		title   string
		content string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "edit <analysis-id> <section-id>",
		Short: "Change a section's title or content",
		Long: `Change a section's title or content. Content comes from --content or
from --file; pass --file - to read it from standard input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("title") && !flags.Changed("content") && !flags.Changed("file") {
				return errors.New("nothing to change: pass --title, --content or --file")
			}
			if flags.Changed("content") && flags.Changed("file") {
				return errors.New("--content and --file are mutually exclusive")
			}
			if flags.Changed("file") {
				data, err := readInput(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				content = data
			}

			sectionID, err := parseID("section", args[1])
			if err != nil {
				return err
			}
			s, err := a.openAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if flags.Changed("title") {
				if err := s.store.UpdateSection(cmd.Context(), sectionID, models.SectionPatch{Title: &title}); err != nil {
					return err
				}
			}
			if flags.Changed("content") || flags.Changed("file") {
				editor := workspace.NewContentEditor(cmd.Context(), s.store, a.cfg.Notebook.EditDebounce, nil, a.logger)
				if err := editor.Edit(sectionID, content); err != nil {
					return err
				}
				// Leaving the editor commits at once rather than after the idle period.
				editor.FlushAll()
			}
			if err := s.settle(); err != nil {
				return err
			}
			return a.printSections(s.store.Sections())
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from a file, or - for stdin")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func newSectionsReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <analysis-id> <section-id>...",
		Short: "Put every section of an analysis in the given order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := parseID("section", raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			s, err := a.openAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.store.ReorderSections(cmd.Context(), ids); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			return a.printSections(s.store.Sections())
		},
	}
}

func newSectionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <analysis-id> <section-id>",
		Short: "Delete a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionID, err := parseID("section", args[1])
			if err != nil {
				return err
			}
			s, err := a.openAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.store.DeleteSection(cmd.Context(), sectionID); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			return a.printSections(s.store.Sections())
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <analysis-id>",
		Short: "Categorize an analysis's report text into explicit, implied and hedging findings",
		Long: `Joins the analysis's sections in order and sends the text to the
server's report analysis. Sections without content are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("analysis", args[0])
			if err != nil {
				return err
			}
			c := a.client()
			detail, err := c.GetAnalysis(cmd.Context(), id)
			if err != nil {
				return err
			}
			text := models.ReportText(detail.Sections)
			if text == "" {
				return errors.New("the analysis has no section content to analyze")
			}
			result, err := c.AnalyzeReport(cmd.Context(), text)
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				for _, row := range []struct{ name, text string }{
					{"EXPLICIT", result.Explicit},
					{"IMPLIED", result.Implied},
					{"HEDGING", result.Hedging},
				} {
					fmt.Fprintf(w, "%s\n%s\n\n", row.name, orNone(row.text))
				}
			})
		},
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func newSharedCmd(a *app) *cobra.Command {
	var analysis string
	cmd := &cobra.Command{
		Use:   "shared <share-token>",
		Short: "Read a public project by its share token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var analysisID *uuid.UUID
			if analysis != "" {
				id, err := parseID("analysis", analysis)
				if err != nil {
					return err
				}
				analysisID = &id
			}
			shared, err := a.client().GetShared(cmd.Context(), args[0], analysisID)
			if err != nil {
				return err
			}
			return a.render(shared, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "%s\n", shared.Name)
				if d := deref(shared.Description); d != "" {
					fmt.Fprintf(w, "%s\n", d)
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, "ANALYSIS\tID")
				for _, an := range shared.Analyses {
					marker := ""
					if shared.SelectedAnalysisID != nil && *shared.SelectedAnalysisID == an.ID.String() {
						marker = " *"
					}
					fmt.Fprintf(w, "%s%s\t%s\n", an.Name, marker, an.ID)
				}
				if len(shared.Sections) > 0 {
					fmt.Fprintln(w)
					for _, s := range shared.Sections {
						fmt.Fprintf(w, "## %s\n%s\n\n", s.Title, s.ContentText())
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&analysis, "analysis", "", "Analysis whose sections to show (default: the first)")
	return cmd
}

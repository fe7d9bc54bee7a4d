package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// openProject loads the store and selects a project.
func (a *app) openProject(ctx context.Context, projectID string) (*session, error) {
	id, err := parseID("project", projectID)
	if err != nil {
		return nil, err
	}
	s, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.SelectProject(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func newAnalysesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyses",
		Aliases: []string{"analysis", "a"},
		Short:   "List and create analyses in a project",
	}
	cmd.AddCommand(newAnalysesListCmd(a), newAnalysesCreateCmd(a))
	return cmd
}

func (a *app) printAnalyses(analyses []models.Analysis) error {
	return a.render(mapViews(analyses, newAnalysisView), func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tLABELS\tCREATED")
		for _, an := range analyses {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", an.ID, an.Name, strings.Join(an.Labels, ","), shortDate(an.CreatedAt))
		}
	})
}

func newAnalysesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's analyses, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printAnalyses(s.store.Analyses())
		},
	}
}

func newAnalysesCreateCmd(a *app) *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "create <project-id> [name]",
		Short: "Create an analysis",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var name string
			if len(args) == 2 {
				name = args[1]
			}
			if _, err := s.store.CreateAnalysis(cmd.Context(), name, labels); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			created, _ := s.store.SelectedAnalysis()
			return a.printAnalyses([]models.Analysis{created})
		},
	}
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Label to attach (repeatable)")
	return cmd
}

func newDatasetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "d"},
		Short:   "List and add datasets in a project",
	}

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's datasets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printDatasets(s.store.Datasets())
		},
	}

	var description string
	add := &cobra.Command{
		Use:   "add <project-id> [name]",
		Short: "Describe a dataset used by the project",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var name string
			if len(args) == 2 {
				name = args[1]
			}
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			if _, err := s.store.CreateDataset(cmd.Context(), name, desc); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			return a.printDatasets(s.store.Datasets())
		},
	}
	add.Flags().StringVar(&description, "description", "", "Dataset description")

	cmd.AddCommand(list, add)
	return cmd
}

func (a *app) printDatasets(datasets []models.Dataset) error {
	views := mapViews(datasets, func(d models.Dataset) datasetView {
		return datasetView{ID: d.ID, Name: d.Name, Description: deref(d.Description)}
	})
	return a.render(views, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, d := range datasets {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, deref(d.Description))
		}
	})
}

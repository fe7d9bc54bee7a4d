package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and manage projects",
	}
	cmd.AddCommand(
		newProjectsListCmd(a),
		newProjectsCreateCmd(a),
		newProjectsRenameCmd(a),
		newProjectsPublishCmd(a),
		newProjectsDeleteCmd(a),
	)
	return cmd
}

func (a *app) printProjects(projects []models.Project) error {
	return a.render(mapViews(projects, newProjectView), func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tPUBLIC\tCREATED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.ID, p.Name, p.IsPublic, shortDate(p.CreatedAt))
		}
	})
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.printProjects(s.store.Projects())
		},
	}
}

func newProjectsCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			s.store.CreateProject(cmd.Context(), name, desc)
			if err := s.settle(); err != nil {
				return err
			}
			created, _ := s.store.SelectedProject()
			return a.printProjects([]models.Project{created})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	return cmd
}

func newProjectsRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <project-id> <name>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			name := args[1]
			if err := s.store.UpdateProject(cmd.Context(), id, models.ProjectPatch{Name: &name}); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			project, ok := find(s.store.Projects(), func(p models.Project) bool { return p.ID == id })
			if !ok {
				return fmt.Errorf("project %s disappeared", id)
			}
			return a.printProjects([]models.Project{project})
		},
	}
}

func newProjectsPublishCmd(a *app) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "publish <project-id>",
		Short: "Make a project readable by share link",
		Long: `Make a project readable without signing in. The share token printed
here can be passed to 'notebookctl shared'. Use --off to make the project
private again; the token stops working immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			public := !off
			if err := s.store.UpdateProject(cmd.Context(), id, models.ProjectPatch{IsPublic: &public}); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			project, ok := find(s.store.Projects(), func(p models.Project) bool { return p.ID == id })
			switch {
			case !ok:
				return fmt.Errorf("project %s disappeared", id)
			case project.IsPublic:
				fmt.Fprintf(a.out, "Share token: %s\n", project.ShareToken)
			default:
				fmt.Fprintln(a.out, "Project is private")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Make the project private")
	return cmd
}

func newProjectsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its analyses and datasets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.store.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			if err := s.settle(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted project %s\n", id)
			return nil
		},
	}
}

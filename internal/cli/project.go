package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list, edit and delete projects.`,
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project",
	Long: `Create a new project.

Examples:
  ironnote project new "Work"
  ironnote project new "Personal" --color "#FF6B6B" --desc "Home stuff"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all projects",
	RunE:    runProjectList,
}

var projectEditCmd = &cobra.Command{
	Use:   "edit [project]",
	Short: "Change a project's name, color or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectEdit,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project]",
	Aliases: []string{"rm"},
	Short:   "Delete a project with its sections and notes",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var (
	projectColor string
	projectDesc  string
	projectName  string
)

func init() {
	projectNewCmd.Flags().StringVarP(&projectColor, "color", "c", model.DefaultProjectColor, "Project color (hex)")
	projectNewCmd.Flags().StringVarP(&projectDesc, "desc", "d", "", "Project description")

	projectEditCmd.Flags().StringVarP(&projectName, "name", "n", "", "New name")
	projectEditCmd.Flags().StringVarP(&projectColor, "color", "c", "", "New color (hex)")
	projectEditCmd.Flags().StringVarP(&projectDesc, "desc", "d", "", "New description")

	projectDeleteCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectEditCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	_, err = a.rec.CreateProject(cmd.Context(), model.Project{
		Name:        strings.Join(args, " "),
		Color:       projectColor,
		Description: projectDesc,
	})
	return reported(err)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.rec.LoadProjects(cmd.Context()); err != nil && !a.usable(store.ScopeProjects) {
		return reported(err)
	}

	projects := a.store().Projects()
	if len(projects) == 0 {
		fmt.Fprintln(a.out, "No projects found.")
		return nil
	}

	current := loadContext().Project
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "  %-10s  %-24s  %-8s  %s\n", "ID", "Name", "Color", "Description")
	fmt.Fprintln(a.out, strings.Repeat("─", 70))
	for _, p := range projects {
		marker := "  "
		if p.ID == current {
			marker = "❯ "
		}
		fmt.Fprintf(a.out, "%s%-10s  %-24s  %-8s  %s\n", marker, shortID(p.ID), p.Name, p.Color, p.Description)
	}
	fmt.Fprintln(a.out, strings.Repeat("─", 70))
	fmt.Fprintf(a.out, "  %d projects\n\n", len(projects))
	return nil
}

func runProjectEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var patch model.ProjectPatch
	if cmd.Flags().Changed("name") {
		patch.Name = &projectName
	}
	if cmd.Flags().Changed("color") {
		patch.Color = &projectColor
	}
	if cmd.Flags().Changed("desc") {
		patch.Description = &projectDesc
	}
	if patch == (model.ProjectPatch{}) {
		return fmt.Errorf("nothing to change: use --name, --color or --desc")
	}
	return reported(a.rec.UpdateProject(cmd.Context(), p.ID, patch))
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	err = a.deleteFlow(cmd, "project", p.Name,
		func() error { return a.rec.RequestDelete(model.KindProject, p.ID) },
		func() error { return a.rec.ConfirmDelete(cmd.Context(), model.KindProject, p.ID) },
		func() { a.rec.CancelDelete(model.KindProject, p.ID) })
	if err == nil && !a.store().Has(model.KindProject, p.ID) && loadContext().Project == p.ID {
		_ = saveContext(workContext{})
	}
	return err
}

// shortID trims server uuids for table output; prefixes resolve back
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

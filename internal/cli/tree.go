package cli

import (
	"fmt"

	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print projects, sections, notes and todos",
	Long: `Print the whole hierarchy, or one project of it.

When the server cannot be reached the last cached copy is shown.

Examples:
  ironnote tree
  ironnote tree --project work
  ironnote tree --done=false`,
	RunE: runTree,
}

var (
	treeProject  string
	treeShowDone bool
)

func init() {
	treeCmd.Flags().StringVarP(&treeProject, "project", "P", "", "Only this project")
	treeCmd.Flags().BoolVar(&treeShowDone, "done", true, "Include completed todos")
}

func runTree(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	if err := a.rec.LoadProjects(ctx); err != nil && !a.usable(store.ScopeProjects) {
		return reported(err)
	}

	projects := a.store().Projects()
	if treeProject != "" {
		p, err := match(model.KindProject, projects, func(p model.Project) string { return p.Name }, treeProject)
		if err != nil {
			return err
		}
		projects = []model.Project{p}
	}
	if len(projects) == 0 {
		fmt.Fprintln(a.out, "No projects found.")
		return nil
	}

	fmt.Fprintln(a.out)
	for _, p := range projects {
		fmt.Fprintf(a.out, "📁 %s\n", p.Name)

		// one failed branch should not hide the rest of the tree
		if err := a.rec.Load(ctx, store.SectionsScope(p.ID)); err != nil && a.store().State(store.ScopeSections).Status != store.StatusStale {
			fmt.Fprintln(a.out, "   (unavailable)")
			continue
		}
		for _, s := range a.store().Sections() {
			fmt.Fprintf(a.out, "   📂 %s\n", s.Title)

			if err := a.rec.Load(ctx, store.NotesScope(s.ID)); err != nil && a.store().State(store.ScopeNotes).Status != store.StatusStale {
				fmt.Fprintln(a.out, "      (unavailable)")
				continue
			}
			for _, n := range a.store().Notes() {
				fmt.Fprintf(a.out, "      📝 %s (%d/%d)\n", n.Title, n.Pending(), len(n.Todos))
				for _, t := range n.Todos {
					if t.IsCompleted && !treeShowDone {
						continue
					}
					fmt.Fprintf(a.out, "         %s %s\n", checkbox(t), t.Content)
				}
			}
		}
	}
	fmt.Fprintln(a.out)
	return nil
}

package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
	"github.com/existflow/ironnote/internal/tui"
	"github.com/spf13/cobra"
)

var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Manage sections of a project",
	Long: `Create, list, show, edit and delete sections.

Sections belong to the current project (see 'ironnote context') unless
--project is given.`,
}

var sectionNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a section",
	Long: `Create a section in a project.

Examples:
  ironnote section new "Backlog"
  ironnote section new "Ideas" --text "## Loose ends" --project work`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSectionNew,
}

var sectionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sections",
	RunE:    runSectionList,
}

var sectionShowCmd = &cobra.Command{
	Use:   "show [section]",
	Short: "Show a section with its text rendered as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runSectionShow,
}

var sectionEditCmd = &cobra.Command{
	Use:   "edit [section]",
	Short: "Change a section's title, text or color",
	Args:  cobra.ExactArgs(1),
	RunE:  runSectionEdit,
}

var sectionDeleteCmd = &cobra.Command{
	Use:     "delete [section]",
	Aliases: []string{"rm"},
	Short:   "Delete a section with its notes",
	Args:    cobra.ExactArgs(1),
	RunE:    runSectionDelete,
}

var (
	sectionTitle string
	sectionText  string
	sectionColor string
)

func init() {
	for _, c := range []*cobra.Command{sectionNewCmd, sectionListCmd, sectionShowCmd, sectionEditCmd, sectionDeleteCmd} {
		c.Flags().StringP("project", "P", "", "Project (defaults to the current context)")
	}
	sectionNewCmd.Flags().StringVarP(&sectionText, "text", "t", "", "Section text (markdown)")
	sectionNewCmd.Flags().StringVarP(&sectionColor, "color", "c", "", "Section color (hex)")

	sectionEditCmd.Flags().StringVarP(&sectionTitle, "title", "n", "", "New title")
	sectionEditCmd.Flags().StringVarP(&sectionText, "text", "t", "", "New text (markdown)")
	sectionEditCmd.Flags().StringVarP(&sectionColor, "color", "c", "", "New color (hex)")

	sectionDeleteCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")

	sectionCmd.AddCommand(sectionNewCmd)
	sectionCmd.AddCommand(sectionListCmd)
	sectionCmd.AddCommand(sectionShowCmd)
	sectionCmd.AddCommand(sectionEditCmd)
	sectionCmd.AddCommand(sectionDeleteCmd)
}

// loadSections resolves the project and loads its sections
func (a *app) loadSections(cmd *cobra.Command) (model.Project, error) {
	projectRef, err := projectFlag(cmd)
	if err != nil {
		return model.Project{}, err
	}
	p, err := a.project(cmd.Context(), projectRef)
	if err != nil {
		return model.Project{}, err
	}
	if err := a.rec.Load(cmd.Context(), store.SectionsScope(p.ID)); err != nil && !a.usable(store.ScopeSections) {
		return model.Project{}, reported(err)
	}
	return p, nil
}

func runSectionNew(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.loadSections(cmd)
	if err != nil {
		return err
	}
	_, err = a.rec.CreateSection(cmd.Context(), model.Section{
		ProjectID: p.ID,
		Title:     strings.Join(args, " "),
		Text:      sectionText,
		Color:     sectionColor,
	})
	return reported(err)
}

func runSectionList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.loadSections(cmd)
	if err != nil {
		return err
	}

	sections := a.store().Sections()
	fmt.Fprintf(a.out, "\n📁 %s\n", p.Name)
	if len(sections) == 0 {
		fmt.Fprintln(a.out, "   No sections yet.")
		return nil
	}

	current := loadContext().Section
	for _, s := range sections {
		marker := "  "
		if s.ID == current {
			marker = "❯ "
		}
		fmt.Fprintf(a.out, "%s%-10s  %s\n", marker, shortID(s.ID), s.Title)
	}
	fmt.Fprintln(a.out)
	return nil
}

func runSectionShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.loadSections(cmd)
	if err != nil {
		return err
	}
	s, err := match(model.KindSection, a.store().Sections(), func(s model.Section) string { return s.Title }, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n📂 %s / %s\n", p.Name, s.Title)
	if text := tui.RenderMarkdown(s.Text, 80); text != "" {
		fmt.Fprintln(a.out, text)
	}
	fmt.Fprintln(a.out)
	return nil
}

func runSectionEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.loadSections(cmd); err != nil {
		return err
	}
	s, err := match(model.KindSection, a.store().Sections(), func(s model.Section) string { return s.Title }, args[0])
	if err != nil {
		return err
	}

	var patch model.SectionPatch
	if cmd.Flags().Changed("title") {
		patch.Title = &sectionTitle
	}
	if cmd.Flags().Changed("text") {
		patch.Text = &sectionText
	}
	if cmd.Flags().Changed("color") {
		patch.Color = &sectionColor
	}
	if patch == (model.SectionPatch{}) {
		return fmt.Errorf("nothing to change: use --title, --text or --color")
	}
	return reported(a.rec.UpdateSection(cmd.Context(), s.ID, patch))
}

func runSectionDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.loadSections(cmd); err != nil {
		return err
	}
	s, err := match(model.KindSection, a.store().Sections(), func(s model.Section) string { return s.Title }, args[0])
	if err != nil {
		return err
	}

	err = a.deleteFlow(cmd, "section", s.Title,
		func() error { return a.rec.RequestDelete(model.KindSection, s.ID) },
		func() error { return a.rec.ConfirmDelete(cmd.Context(), model.KindSection, s.ID) },
		func() { a.rec.CancelDelete(model.KindSection, s.ID) })
	if wc := loadContext(); err == nil && !a.store().Has(model.KindSection, s.ID) && wc.Section == s.ID {
		wc.Section = ""
		_ = saveContext(wc)
	}
	return err
}

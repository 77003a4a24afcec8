package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/existflow/ironnote/internal/config"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage the working project and section",
	Long: `Set or view the current project and section.

Section, note and todo commands work inside the current context unless
--project or --section is given.

Examples:
  ironnote context                    # Show current context
  ironnote context project 3f2a       # Work in project 3f2a...
  ironnote context section "Backlog"  # Work in a section of that project
  ironnote context clear`,
	RunE: runContextShow,
}

var contextProjectCmd = &cobra.Command{
	Use:   "project [project]",
	Short: "Set the current project (by id, id prefix or name)",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextProject,
}

var contextSectionCmd = &cobra.Command{
	Use:   "section [section]",
	Short: "Set the current section of the current project",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextSection,
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the current context",
	RunE:  runContextClear,
}

func init() {
	contextCmd.AddCommand(contextProjectCmd)
	contextCmd.AddCommand(contextSectionCmd)
	contextCmd.AddCommand(contextClearCmd)
}

// workContext is the persisted current project and section
type workContext struct {
	Project string `yaml:"project,omitempty"`
	Section string `yaml:"section,omitempty"`
}

func contextFilePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "context.yaml"), nil
}

// loadContext returns the saved context, empty when none is saved
func loadContext() workContext {
	var wc workContext
	path, err := contextFilePath()
	if err != nil {
		return wc
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return wc
	}
	_ = yaml.Unmarshal(data, &wc)
	return wc
}

func saveContext(wc workContext) error {
	path, err := contextFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(wc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func runContextShow(cmd *cobra.Command, args []string) error {
	wc := loadContext()
	if wc.Project == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "📥 No context set. Use 'ironnote context project <project>'.")
		return nil
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.project(cmd.Context(), wc.Project)
	if err != nil {
		fmt.Fprintf(a.out, "⚠️  Context set to '%s' but project not found\n", wc.Project)
		return nil
	}
	fmt.Fprintf(a.out, "📁 Project: %s (%s)\n", p.Name, p.ID)

	if wc.Section == "" {
		return nil
	}
	s, err := a.section(cmd.Context(), p.ID, wc.Section)
	if err != nil {
		fmt.Fprintf(a.out, "⚠️  Section '%s' not found\n", wc.Section)
		return nil
	}
	fmt.Fprintf(a.out, "📂 Section: %s (%s)\n", s.Title, s.ID)
	return nil
}

func runContextProject(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := saveContext(workContext{Project: p.ID}); err != nil {
		return fmt.Errorf("failed to set context: %w", err)
	}
	fmt.Fprintf(a.out, "📁 Switched to: %s\n", p.Name)
	return nil
}

func runContextSection(cmd *cobra.Command, args []string) error {
	wc := loadContext()
	if wc.Project == "" {
		return errNoProject
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.section(cmd.Context(), wc.Project, args[0])
	if err != nil {
		return err
	}
	wc.Section = s.ID
	if err := saveContext(wc); err != nil {
		return fmt.Errorf("failed to set context: %w", err)
	}
	fmt.Fprintf(a.out, "📂 Switched to: %s\n", s.Title)
	return nil
}

func runContextClear(cmd *cobra.Command, args []string) error {
	path, err := contextFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear context: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "📥 Context cleared")
	return nil
}

var (
	errNoProject = errors.New("no project selected: use --project or 'ironnote context project <project>'")
	errNoSection = errors.New("no section selected: use --section or 'ironnote context section <section>'")
)

// projectFlag returns --project or the context project
func projectFlag(cmd *cobra.Command) (string, error) {
	if v, _ := cmd.Flags().GetString("project"); v != "" {
		return v, nil
	}
	if wc := loadContext(); wc.Project != "" {
		return wc.Project, nil
	}
	return "", errNoProject
}

// sectionFlag returns --section or the context section
func sectionFlag(cmd *cobra.Command) (string, error) {
	if v, _ := cmd.Flags().GetString("section"); v != "" {
		return v, nil
	}
	if wc := loadContext(); wc.Section != "" {
		return wc.Section, nil
	}
	return "", errNoSection
}

// match finds ref among items by exact id, unique id prefix or
// case-insensitive label
func match[T model.Entity](kind model.Kind, items []T, label func(T) string, ref string) (T, error) {
	var zero T
	var byPrefix, byLabel []T
	for _, it := range items {
		switch {
		case it.GetID() == ref:
			return it, nil
		case strings.HasPrefix(it.GetID(), ref):
			byPrefix = append(byPrefix, it)
		case strings.EqualFold(label(it), ref):
			byLabel = append(byLabel, it)
		}
	}
	for _, candidates := range [][]T{byPrefix, byLabel} {
		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0], nil
		default:
			return zero, fmt.Errorf("%s %q is ambiguous (%d matches)", kind, ref, len(candidates))
		}
	}
	return zero, fmt.Errorf("%s not found: %s", kind, ref)
}

func (a *app) project(ctx context.Context, ref string) (model.Project, error) {
	if err := a.rec.LoadProjects(ctx); err != nil && !a.usable(store.ScopeProjects) {
		return model.Project{}, reported(err)
	}
	return match(model.KindProject, a.store().Projects(), func(p model.Project) string { return p.Name }, ref)
}

func (a *app) section(ctx context.Context, projectRef, ref string) (model.Section, error) {
	p, err := a.project(ctx, projectRef)
	if err != nil {
		return model.Section{}, err
	}
	if err := a.rec.Load(ctx, store.SectionsScope(p.ID)); err != nil && !a.usable(store.ScopeSections) {
		return model.Section{}, reported(err)
	}
	return match(model.KindSection, a.store().Sections(), func(s model.Section) string { return s.Title }, ref)
}

// notes loads the notes of the section named by --section or the context
func (a *app) notes(cmd *cobra.Command) (model.Section, error) {
	sectionRef, err := sectionFlag(cmd)
	if err != nil {
		return model.Section{}, err
	}
	projectRef, err := projectFlag(cmd)
	if err != nil {
		return model.Section{}, err
	}
	s, err := a.section(cmd.Context(), projectRef, sectionRef)
	if err != nil {
		return model.Section{}, err
	}
	if err := a.rec.Load(cmd.Context(), store.NotesScope(s.ID)); err != nil && !a.usable(store.ScopeNotes) {
		return model.Section{}, reported(err)
	}
	return s, nil
}

func (a *app) note(cmd *cobra.Command, ref string) (model.Note, error) {
	if _, err := a.notes(cmd); err != nil {
		return model.Note{}, err
	}
	return match(model.KindNote, a.store().Notes(), func(n model.Note) string { return n.Title }, ref)
}

func (a *app) todo(cmd *cobra.Command, ref string) (model.Todo, error) {
	if _, err := a.notes(cmd); err != nil {
		return model.Todo{}, err
	}
	var todos []model.Todo
	for _, n := range a.store().Notes() {
		todos = append(todos, n.Todos...)
	}
	return match(model.KindTodo, todos, func(t model.Todo) string { return t.Content }, ref)
}

// usable reports whether a failed load still left cached data to work with
func (a *app) usable(kind store.ScopeKind) bool {
	if a.store().State(kind).Status != store.StatusStale {
		return false
	}
	fmt.Fprintln(a.out, "📴 Offline, showing cached data")
	return true
}

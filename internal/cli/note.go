package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/ironnote/internal/model"
	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes of a section",
	Long: `Create, list, rename and delete notes.

Notes belong to the current section (see 'ironnote context') unless
--section is given.`,
}

var noteNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a note",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNoteNew,
}

var noteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes with their progress",
	RunE:    runNoteList,
}

var noteRenameCmd = &cobra.Command{
	Use:   "rename [note] [title]",
	Short: "Rename a note",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runNoteRename,
}

var noteDeleteCmd = &cobra.Command{
	Use:     "delete [note]",
	Aliases: []string{"rm"},
	Short:   "Delete a note with its todos",
	Args:    cobra.ExactArgs(1),
	RunE:    runNoteDelete,
}

func init() {
	for _, c := range []*cobra.Command{noteNewCmd, noteListCmd, noteRenameCmd, noteDeleteCmd} {
		addScopeFlags(c)
	}
	noteDeleteCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")

	noteCmd.AddCommand(noteNewCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteRenameCmd)
	noteCmd.AddCommand(noteDeleteCmd)
}

func addScopeFlags(c *cobra.Command) {
	c.Flags().StringP("project", "P", "", "Project (defaults to the current context)")
	c.Flags().StringP("section", "S", "", "Section (defaults to the current context)")
}

func runNoteNew(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.notes(cmd)
	if err != nil {
		return err
	}
	_, err = a.rec.CreateNote(cmd.Context(), model.Note{SectionID: s.ID, Title: strings.Join(args, " ")})
	return reported(err)
}

func runNoteList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.notes(cmd)
	if err != nil {
		return err
	}

	notes := a.store().Notes()
	fmt.Fprintf(a.out, "\n📂 %s\n", s.Title)
	if len(notes) == 0 {
		fmt.Fprintln(a.out, "   No notes yet.")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintf(a.out, "  %-10s  %-30s  %d/%d\n", shortID(n.ID), n.Title, n.Pending(), len(n.Todos))
	}
	fmt.Fprintln(a.out)
	return nil
}

func runNoteRename(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.note(cmd, args[0])
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")
	return reported(a.rec.UpdateNote(cmd.Context(), n.ID, model.NotePatch{Title: &title}))
}

func runNoteDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.note(cmd, args[0])
	if err != nil {
		return err
	}
	return a.deleteFlow(cmd, "note", n.Title,
		func() error { return a.rec.RequestDelete(model.KindNote, n.ID) },
		func() error { return a.rec.ConfirmDelete(cmd.Context(), model.KindNote, n.ID) },
		func() { a.rec.CancelDelete(model.KindNote, n.ID) })
}

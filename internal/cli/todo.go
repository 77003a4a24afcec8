package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/ironnote/internal/model"
	"github.com/spf13/cobra"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage the checklist of a note",
	Long: `Add, complete, edit, reorder and delete todos.

Todos are looked up in the current section (see 'ironnote context'). Ids can
be shortened to any unique prefix, or given as the todo's exact text.

Examples:
  ironnote todo add Groceries "Buy milk"
  ironnote todo done 3f2a
  ironnote todo move 3f2a 9c1e      # put 3f2a where 9c1e is`,
}

var todoAddCmd = &cobra.Command{
	Use:   "add [note] [content]",
	Short: "Add a todo to the end of a note",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTodoAdd,
}

var todoListCmd = &cobra.Command{
	Use:     "list [note]",
	Aliases: []string{"ls"},
	Short:   "List the todos of a note in order",
	Args:    cobra.ExactArgs(1),
	RunE:    runTodoList,
}

var todoDoneCmd = &cobra.Command{
	Use:   "done [todo]",
	Short: "Mark a todo as done",
	Args:  cobra.ExactArgs(1),
	RunE:  runTodoDone,
}

var todoEditCmd = &cobra.Command{
	Use:   "edit [todo] [content]",
	Short: "Change a todo's text",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTodoEdit,
}

var todoMoveCmd = &cobra.Command{
	Use:   "move [todo] [target]",
	Short: "Move a todo to the position of another todo in the same note",
	Long: `Move a todo to the position of another todo in the same note.

The order is kept on this machine only; the server does not store it.`,
	Args: cobra.ExactArgs(2),
	RunE: runTodoMove,
}

var todoDeleteCmd = &cobra.Command{
	Use:     "delete [todo]",
	Aliases: []string{"rm"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE:    runTodoDelete,
}

var todoUndo bool

func init() {
	for _, c := range []*cobra.Command{todoAddCmd, todoListCmd, todoDoneCmd, todoEditCmd, todoMoveCmd, todoDeleteCmd} {
		addScopeFlags(c)
	}
	todoDoneCmd.Flags().BoolVar(&todoUndo, "undo", false, "Mark the todo as not done")
	todoDeleteCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")

	todoCmd.AddCommand(todoAddCmd)
	todoCmd.AddCommand(todoListCmd)
	todoCmd.AddCommand(todoDoneCmd)
	todoCmd.AddCommand(todoEditCmd)
	todoCmd.AddCommand(todoMoveCmd)
	todoCmd.AddCommand(todoDeleteCmd)
}

func runTodoAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.note(cmd, args[0])
	if err != nil {
		return err
	}
	_, err = a.rec.CreateTodo(cmd.Context(), model.Todo{NoteID: n.ID, Content: strings.Join(args[1:], " ")})
	return reported(err)
}

func runTodoList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.note(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n📝 %s (%d/%d)\n", n.Title, n.Pending(), len(n.Todos))
	if len(n.Todos) == 0 {
		fmt.Fprintln(a.out, "   Nothing to do.")
		return nil
	}
	for _, t := range n.Todos {
		fmt.Fprintf(a.out, "  %s %-10s  %s\n", checkbox(t), shortID(t.ID), t.Content)
	}
	fmt.Fprintln(a.out)
	return nil
}

func runTodoDone(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	t, err := a.todo(cmd, args[0])
	if err != nil {
		return err
	}
	done := !todoUndo
	return reported(a.rec.UpdateTodo(cmd.Context(), t.ID, model.TodoPatch{IsCompleted: &done}))
}

func runTodoEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	t, err := a.todo(cmd, args[0])
	if err != nil {
		return err
	}

	// same path as the TUI's inline editor
	content := strings.Join(args[1:], " ")
	if err := a.store().BeginEdit(model.KindTodo, t.ID, t.Content); err != nil {
		return err
	}
	if err := a.store().Edits().SetDraft(model.KindTodo, t.ID, content); err != nil {
		return err
	}
	return reported(a.rec.CommitEdit(cmd.Context(), model.KindTodo, t.ID))
}

func runTodoMove(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	from, err := a.todo(cmd, args[0])
	if err != nil {
		return err
	}
	to, err := a.todo(cmd, args[1])
	if err != nil {
		return err
	}
	if from.NoteID != to.NoteID {
		return fmt.Errorf("todos are in different notes")
	}

	if err := a.rec.Reorder(cmd.Context(), from.NoteID, from.ID, to.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "↕ Moved: %q\n", from.Content)
	return nil
}

func runTodoDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	t, err := a.todo(cmd, args[0])
	if err != nil {
		return err
	}
	return a.deleteFlow(cmd, "todo", t.Content,
		func() error { return a.rec.RequestDelete(model.KindTodo, t.ID) },
		func() error { return a.rec.ConfirmDelete(cmd.Context(), model.KindTodo, t.ID) },
		func() { a.rec.CancelDelete(model.KindTodo, t.ID) })
}

func checkbox(t model.Todo) string {
	if t.IsCompleted {
		return "[✓]"
	}
	return "[ ]"
}

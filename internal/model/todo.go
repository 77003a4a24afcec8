package model

import "strings"

// Todo is a single checklist entry inside a note
type Todo struct {
	ID          string `json:"id"`
	NoteID      string `json:"note_id"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"is_completed"`
}

// TodoPatch updates content and/or completion
type TodoPatch struct {
	Content     *string `json:"content,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

func (t Todo) GetID() string { return t.ID }

// NewTodo creates an open todo for a note
func NewTodo(noteID, content string) Todo {
	return Todo{NoteID: noteID, Content: strings.TrimSpace(content)}
}

func (t Todo) Validate() error {
	if err := required(KindTodo, "note_id", t.NoteID); err != nil {
		return err
	}
	return required(KindTodo, "content", t.Content)
}

func (p TodoPatch) Validate() error {
	if p.Content != nil {
		return required(KindTodo, "content", *p.Content)
	}
	return nil
}

func (p TodoPatch) Apply(todo Todo) Todo {
	if p.Content != nil {
		todo.Content = strings.TrimSpace(*p.Content)
	}
	if p.IsCompleted != nil {
		todo.IsCompleted = *p.IsCompleted
	}
	return todo
}

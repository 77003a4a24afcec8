package model

import "strings"

// Note is a titled container of todos. Todos are kept in display order;
// position in the slice is the only ordering information.
type Note struct {
	ID        string `json:"id"`
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Todos     []Todo `json:"todos,omitempty"`
}

// NotePatch is a partial update of a note title
type NotePatch struct {
	Title *string `json:"title,omitempty"`
}

func (n Note) GetID() string { return n.ID }

func NewNote(sectionID, title string) Note {
	return Note{SectionID: sectionID, Title: strings.TrimSpace(title)}
}

func (n Note) Validate() error {
	if err := required(KindNote, "section_id", n.SectionID); err != nil {
		return err
	}
	return required(KindNote, "title", n.Title)
}

// Pending returns the number of todos not yet completed
func (n Note) Pending() int {
	count := 0
	for _, t := range n.Todos {
		if !t.IsCompleted {
			count++
		}
	}
	return count
}

func (p NotePatch) Validate() error {
	if p.Title != nil {
		return required(KindNote, "title", *p.Title)
	}
	return nil
}

// Apply keeps the note's todos untouched
func (p NotePatch) Apply(note Note) Note {
	if p.Title != nil {
		note.Title = strings.TrimSpace(*p.Title)
	}
	return note
}

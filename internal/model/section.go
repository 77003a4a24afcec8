package model

import (
	"strings"
	"time"
)

// Section is a subdivision of a project
type Section struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// SectionPatch is a partial update; nil fields are left unchanged
type SectionPatch struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
	Color *string `json:"color,omitempty"`
}

func (s Section) GetID() string { return s.ID }

// NewSection builds a section for a project
func NewSection(projectID, title, text, color string) Section {
	return Section{
		ProjectID: projectID,
		Title:     strings.TrimSpace(title),
		Text:      strings.TrimSpace(text),
		Color:     color,
		CreatedAt: time.Now(),
	}
}

func (s Section) Validate() error {
	if err := required(KindSection, "project_id", s.ProjectID); err != nil {
		return err
	}
	return required(KindSection, "title", s.Title)
}

func (p SectionPatch) Validate() error {
	if p.Title != nil {
		return required(KindSection, "title", *p.Title)
	}
	return nil
}

func (p SectionPatch) Apply(section Section) Section {
	if p.Title != nil {
		section.Title = strings.TrimSpace(*p.Title)
	}
	if p.Text != nil {
		section.Text = strings.TrimSpace(*p.Text)
	}
	if p.Color != nil {
		section.Color = *p.Color
	}
	return section
}

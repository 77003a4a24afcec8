package model

import (
	"strings"
	"time"
)

// DefaultProjectColor is used when a project is created without a color
const DefaultProjectColor = "#4ECDC4"

// Project is the top-level container owned by a user
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectPatch is a partial update; nil fields are left unchanged
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

// GetID returns the project id
func (p Project) GetID() string { return p.ID }

// NewProject builds a project with defaults applied
func NewProject(name, color, description string) Project {
	if color == "" {
		color = DefaultProjectColor
	}
	return Project{
		Name:        strings.TrimSpace(name),
		Color:       color,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now(),
	}
}

// Validate checks required fields
func (p Project) Validate() error {
	return required(KindProject, "name", p.Name)
}

// Validate checks that a patch does not blank a required field
func (p ProjectPatch) Validate() error {
	if p.Name != nil {
		return required(KindProject, "name", *p.Name)
	}
	return nil
}

// Apply returns a copy of the project with the patch applied
func (p ProjectPatch) Apply(project Project) Project {
	if p.Name != nil {
		project.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		project.Color = *p.Color
	}
	if p.Description != nil {
		project.Description = strings.TrimSpace(*p.Description)
	}
	return project
}

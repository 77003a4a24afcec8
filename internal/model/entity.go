package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind names an entity type
type Kind string

const (
	KindProject Kind = "project"
	KindSection Kind = "section"
	KindNote    Kind = "note"
	KindTodo    Kind = "todo"
)

// Entity is implemented by every stored type
type Entity interface {
	GetID() string
}

// tempPrefix marks ids created locally before the server assigned one
const tempPrefix = "local-"

// NewTempID returns an id that can never collide with a server-assigned one
func NewTempID() string {
	return tempPrefix + uuid.NewString()
}

// IsTempID reports whether id was produced by NewTempID
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// ValidationError reports a required field that is empty after trimming
type ValidationError struct {
	Kind  Kind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s is required", e.Kind, e.Field)
}

func required(kind Kind, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Kind: kind, Field: field}
	}
	return nil
}

// Ptr returns a pointer to v, for building patches
func Ptr[T any](v T) *T {
	return &v
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRecord is wrapped by every save-time validation failure.
	ErrInvalidRecord = errors.New("record invalid")

	// ErrInvalidTranslation is returned when a translation blob is not a
	// YAML document in the expected shape.
	ErrInvalidTranslation = errors.New("invalid translation")

	// ErrInvalidTemplate is returned when answer text fails to render.
	ErrInvalidTemplate = errors.New("invalid text template")

	// ErrDeleteWithoutPrimaryKey guards cascades: a delete issued against a
	// zero-value model cannot find its dependents.
	ErrDeleteWithoutPrimaryKey = errors.New("delete requires a loaded record")
)

// MassAssignmentError reports protected attributes present in a bulk
// assignment. Nothing is assigned when it is returned.
type MassAssignmentError struct {
	Model      string
	Attributes []string
}

func (e *MassAssignmentError) Error() string {
	return fmt.Sprintf("can't mass-assign protected attributes for %s: %s", e.Model, strings.Join(e.Attributes, ", "))
}

type UnknownAttributeError struct {
	Model     string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q for %s", e.Attribute, e.Model)
}

type AttributeTypeError struct {
	Attribute string
	Want      string
	Value     interface{}
}

func (e *AttributeTypeError) Error() string {
	return fmt.Sprintf("attribute %q expects %s, got %T", e.Attribute, e.Want, e.Value)
}

package models

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Attributes set by the persistence layer only. They are never accepted
// from bulk assignment.
var answerProtectedAttributes = map[string]bool{
	"id":         true,
	"api_id":     true,
	"created_at": true,
	"updated_at": true,
}

type answerSetter func(a *Answer, attr string, value interface{}) error

var answerAccessibleAttributes = map[string]answerSetter{
	"question_id": func(a *Answer, attr string, v interface{}) error {
		n, err := toInt(attr, v)
		if err != nil {
			return err
		}
		if n < 0 {
			return &AttributeTypeError{Attribute: attr, Want: "unsigned integer", Value: v}
		}
		a.QuestionID = uint(n)
		return nil
	},
	"text":                   setStringPtr(func(a *Answer) **string { return &a.Text }),
	"help_text":              setStringPtr(func(a *Answer) **string { return &a.HelpText }),
	"default_value":          setStringPtr(func(a *Answer) **string { return &a.DefaultValue }),
	"short_text":             setString(func(a *Answer) *string { return &a.ShortText }),
	"reference_identifier":   setString(func(a *Answer) *string { return &a.ReferenceIdentifier }),
	"data_export_identifier": setString(func(a *Answer) *string { return &a.DataExportIdentifier }),
	"custom_class":           setString(func(a *Answer) *string { return &a.CustomClass }),
	"display_type":           setString(func(a *Answer) *string { return &a.DisplayType }),
	"response_class":         setString(func(a *Answer) *string { return &a.ResponseClass }),
	"input_mask":             setString(func(a *Answer) *string { return &a.InputMask }),
	"input_mask_placeholder": setString(func(a *Answer) *string { return &a.InputMaskPlaceholder }),
	"is_exclusive": func(a *Answer, attr string, v interface{}) error {
		b, err := toBool(attr, v)
		if err != nil {
			return err
		}
		a.IsExclusive = b
		return nil
	},
	"display_order": func(a *Answer, attr string, v interface{}) error {
		n, err := toInt(attr, v)
		if err != nil {
			return err
		}
		a.DisplayOrder = n
		return nil
	},
	"weight": func(a *Answer, attr string, v interface{}) error {
		if v == nil {
			a.Weight = nil
			return nil
		}
		n, err := toInt(attr, v)
		if err != nil {
			return err
		}
		a.Weight = &n
		return nil
	},
}

// AssignAttributes applies a bulk attribute map, keyed by JSON column name,
// through the accessible-attribute whitelist.
//
// Protected attributes (id, api_id, created_at, updated_at) are rejected with
// a *MassAssignmentError when strict is set and silently dropped otherwise.
// Unknown attributes and type mismatches are always errors. On any error the
// answer is left untouched.
func (a *Answer) AssignAttributes(attrs map[string]interface{}, strict bool) error {
	var protected []string
	for attr := range attrs {
		if answerProtectedAttributes[attr] {
			protected = append(protected, attr)
			continue
		}
		if _, ok := answerAccessibleAttributes[attr]; !ok {
			return &UnknownAttributeError{Model: "answer", Attribute: attr}
		}
	}
	if strict && len(protected) > 0 {
		sort.Strings(protected)
		return &MassAssignmentError{Model: "answer", Attributes: protected}
	}

	next := *a
	for attr, value := range attrs {
		if answerProtectedAttributes[attr] {
			continue
		}
		if err := answerAccessibleAttributes[attr](&next, attr, value); err != nil {
			return err
		}
	}
	*a = next
	return nil
}

// IsProtectedAnswerAttribute reports whether attr is managed by the
// persistence layer.
func IsProtectedAnswerAttribute(attr string) bool {
	return answerProtectedAttributes[attr]
}

func setString(field func(*Answer) *string) answerSetter {
	return func(a *Answer, attr string, v interface{}) error {
		switch s := v.(type) {
		case nil:
			*field(a) = ""
		case string:
			*field(a) = s
		default:
			return &AttributeTypeError{Attribute: attr, Want: "string", Value: v}
		}
		return nil
	}
}

func setStringPtr(field func(*Answer) **string) answerSetter {
	return func(a *Answer, attr string, v interface{}) error {
		switch s := v.(type) {
		case nil:
			*field(a) = nil
		case string:
			*field(a) = &s
		case *string:
			*field(a) = s
		default:
			return &AttributeTypeError{Attribute: attr, Want: "string or null", Value: v}
		}
		return nil
	}
}

func toBool(attr string, v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, &AttributeTypeError{Attribute: attr, Want: "boolean", Value: v}
		}
		return parsed, nil
	default:
		return false, &AttributeTypeError{Attribute: attr, Want: "boolean", Value: v}
	}
}

func toInt(attr string, v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, &AttributeTypeError{Attribute: attr, Want: "integer", Value: v}
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &AttributeTypeError{Attribute: attr, Want: "integer", Value: v}
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, &AttributeTypeError{Attribute: attr, Want: "integer", Value: v}
		}
		return i, nil
	default:
		return 0, &AttributeTypeError{Attribute: attr, Want: "integer", Value: v}
	}
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DisplayTypeDefault     = "default"
	DisplayTypeLabel       = "label"
	DisplayTypeImage       = "image"
	DisplayTypeHiddenLabel = "hidden_label"
)

// TextPart selects a segment of a pipe-delimited answer text.
type TextPart string

const (
	TextFull TextPart = ""
	TextPre  TextPart = "pre"
	TextPost TextPart = "post"
)

// ParseTextPart accepts "", "pre" and "post".
func ParseTextPart(s string) (TextPart, error) {
	switch p := TextPart(strings.ToLower(strings.TrimSpace(s))); p {
	case TextFull, TextPre, TextPost:
		return p, nil
	default:
		return TextFull, fmt.Errorf("unknown text part %q", s)
	}
}

type Answer struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	APIID                string    `json:"api_id" gorm:"size:36;uniqueIndex"`
	QuestionID           uint      `json:"question_id" gorm:"not null;index" validate:"required"`
	Text                 *string   `json:"text" validate:"required"`
	ShortText            string    `json:"short_text"`
	HelpText             *string   `json:"help_text"`
	DefaultValue         *string   `json:"default_value"`
	ReferenceIdentifier  string    `json:"reference_identifier" gorm:"index"`
	DataExportIdentifier string    `json:"data_export_identifier"`
	CustomClass          string    `json:"custom_class"`
	IsExclusive          bool      `json:"is_exclusive" gorm:"not null;default:false"`
	DisplayType          string    `json:"display_type" gorm:"size:16" validate:"omitempty,oneof=default label image hidden_label"`
	ResponseClass        string    `json:"response_class" gorm:"size:16;not null;default:'answer'" validate:"omitempty,oneof=answer string text integer float date time datetime"`
	DisplayOrder         int       `json:"display_order" gorm:"not null;default:0"`
	Weight               *int      `json:"weight"`
	InputMask            string    `json:"input_mask"`
	InputMaskPlaceholder string    `json:"input_mask_placeholder"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	// Relationships
	Question    *Question    `json:"question,omitempty" validate:"-"`
	Validations []Validation `json:"validations,omitempty" gorm:"foreignKey:AnswerID;constraint:OnDelete:CASCADE" validate:"-"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.APIID == "" {
		a.APIID = uuid.NewString()
	}
	return nil
}

func (a *Answer) BeforeSave(tx *gorm.DB) error {
	return validateRecord("answer", a)
}

// BeforeDelete removes the answer's validations in the same transaction.
func (a *Answer) BeforeDelete(tx *gorm.DB) error {
	if a.ID == 0 {
		return ErrDeleteWithoutPrimaryKey
	}
	return deleteValidationsOf(tx, []uint{a.ID})
}

// CSSClass is the custom class, prefixed with "exclusive " for exclusive
// answers.
func (a *Answer) CSSClass() string {
	if a.IsExclusive {
		return "exclusive " + a.CustomClass
	}
	return a.CustomClass
}

// SplitOrHiddenText returns the requested part of the answer text. The
// text is rendered as a Mustache template first when context is non-nil,
// then split once on "|". Hidden labels always yield "".
func (a *Answer) SplitOrHiddenText(part TextPart, context interface{}) (string, error) {
	if a.DisplayType == DisplayTypeHiddenLabel {
		return "", nil
	}

	text := ""
	if a.Text != nil {
		text = *a.Text
	}
	if context != nil {
		// Partials resolve against an empty provider, never the filesystem.
		rendered, err := mustache.RenderPartials(text, &mustache.StaticProvider{}, context)
		if err != nil {
			return "", fmt.Errorf("%w: answer %d: %v", ErrInvalidTemplate, a.ID, err)
		}
		text = rendered
	}

	switch part {
	case TextPre:
		pre, _, _ := strings.Cut(text, "|")
		return pre, nil
	case TextPost:
		_, post, _ := strings.Cut(text, "|")
		return post, nil
	default:
		return text, nil
	}
}

// Translation resolves text, help text and default value for locale from
// questions.<question ref>.answers.<answer ref> of the survey translation.
// Missing keys fall back to the answer's own values. The ancestor chain
// Question.SurveySection.Survey.Translations must be loaded; without it the
// answer's own values are returned.
func (a *Answer) Translation(locale string) AnswerTranslation {
	out := AnswerTranslation{
		Text:         a.Text,
		HelpText:     a.HelpText,
		DefaultValue: a.DefaultValue,
	}
	if a.Question == nil {
		return out
	}

	t, ok := a.Question.Translation(locale).Answers[a.ReferenceIdentifier]
	if !ok {
		return out
	}
	out.Text = pick(t.Text, out.Text)
	out.HelpText = pick(t.HelpText, out.HelpText)
	out.DefaultValue = pick(t.DefaultValue, out.DefaultValue)
	return out
}

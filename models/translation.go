package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TranslationBlob is the decoded form of a SurveyTranslation. Keys under
// survey_sections, questions and answers are reference identifiers.
type TranslationBlob struct {
	Title       *string                        `json:"title,omitempty" yaml:"title"`
	Description *string                        `json:"description,omitempty" yaml:"description"`
	Sections    map[string]SectionTranslation  `json:"survey_sections,omitempty" yaml:"survey_sections"`
	Questions   map[string]QuestionTranslation `json:"questions,omitempty" yaml:"questions"`
}

type SectionTranslation struct {
	Title *string `json:"title" yaml:"title"`
}

type QuestionTranslation struct {
	Text     *string                      `json:"text" yaml:"text"`
	HelpText *string                      `json:"help_text" yaml:"help_text"`
	Answers  map[string]AnswerTranslation `json:"answers,omitempty" yaml:"answers"`
}

// AnswerTranslation holds the translatable fields of an Answer. A nil field
// means neither the translation nor the answer itself has a value.
type AnswerTranslation struct {
	Text         *string `json:"text" yaml:"text"`
	HelpText     *string `json:"help_text" yaml:"help_text"`
	DefaultValue *string `json:"default_value" yaml:"default_value"`
}

// ParseTranslation decodes a YAML translation document. An empty document
// is a valid, empty translation.
func ParseTranslation(doc string) (*TranslationBlob, error) {
	var blob TranslationBlob
	if err := yaml.Unmarshal([]byte(doc), &blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTranslation, err)
	}
	return &blob, nil
}

// pick treats a YAML null the same as a missing key: the fallback wins.
func pick(override, fallback *string) *string {
	if override != nil {
		return override
	}
	return fallback
}

func stringPtr(s string) *string {
	return &s
}

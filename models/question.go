package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Question struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	APIID               string    `json:"api_id" gorm:"size:36;uniqueIndex"`
	SurveySectionID     uint      `json:"survey_section_id" gorm:"not null;index" validate:"required"`
	Text                string    `json:"text" gorm:"not null" validate:"required"`
	HelpText            *string   `json:"help_text"`
	ReferenceIdentifier string    `json:"reference_identifier" gorm:"index"`
	Pick                string    `json:"pick" gorm:"size:8;not null;default:'none'" validate:"omitempty,oneof=none one any"`
	DisplayOrder        int       `json:"display_order" gorm:"not null;default:0"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Relationships
	SurveySection *SurveySection `json:"survey_section,omitempty" validate:"-"`
	Answers       []Answer       `json:"answers,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" validate:"-"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.APIID == "" {
		q.APIID = uuid.NewString()
	}
	return nil
}

func (q *Question) BeforeSave(tx *gorm.DB) error {
	return validateRecord("question", q)
}

func (q *Question) BeforeDelete(tx *gorm.DB) error {
	if q.ID == 0 {
		return ErrDeleteWithoutPrimaryKey
	}
	var answerIDs []uint
	if err := tx.Session(&gorm.Session{NewDB: true}).Model(&Answer{}).
		Where("question_id = ?", q.ID).Pluck("id", &answerIDs).Error; err != nil {
		return err
	}
	return deleteAnswers(tx, answerIDs)
}

// Translation merges the question's text and help text with the survey
// translation for locale. Answers carries the per-answer overrides.
// SurveySection.Survey.Translations must be loaded.
func (q *Question) Translation(locale string) QuestionTranslation {
	out := QuestionTranslation{
		Text:     stringPtr(q.Text),
		HelpText: q.HelpText,
	}
	if q.SurveySection == nil || q.SurveySection.Survey == nil {
		return out
	}

	t, ok := q.SurveySection.Survey.Translation(locale).Questions[q.ReferenceIdentifier]
	if !ok {
		return out
	}
	out.Text = pick(t.Text, out.Text)
	out.HelpText = pick(t.HelpText, out.HelpText)
	out.Answers = t.Answers
	return out
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// SurveyTranslation stores one locale's YAML overrides for a survey.
type SurveyTranslation struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SurveyID    uint      `json:"survey_id" gorm:"not null;uniqueIndex:idx_survey_translations_locale" validate:"required"`
	Locale      string    `json:"locale" gorm:"size:16;not null;uniqueIndex:idx_survey_translations_locale" validate:"required,max=16,locale"`
	Translation string    `json:"translation" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t *SurveyTranslation) BeforeSave(tx *gorm.DB) error {
	if err := validateRecord("survey translation", t); err != nil {
		return err
	}
	_, err := ParseTranslation(t.Translation)
	return err
}

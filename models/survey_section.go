package models

import (
	"time"

	"gorm.io/gorm"
)

type SurveySection struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	SurveyID            uint      `json:"survey_id" gorm:"not null;index" validate:"required"`
	Title               string    `json:"title" gorm:"not null" validate:"required"`
	Description         string    `json:"description"`
	ReferenceIdentifier string    `json:"reference_identifier"`
	DisplayOrder        int       `json:"display_order" gorm:"not null;default:0"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Relationships
	Survey    *Survey    `json:"survey,omitempty" validate:"-"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:SurveySectionID;constraint:OnDelete:CASCADE" validate:"-"`
}

func (s *SurveySection) BeforeSave(tx *gorm.DB) error {
	return validateRecord("survey section", s)
}

func (s *SurveySection) BeforeDelete(tx *gorm.DB) error {
	if s.ID == 0 {
		return ErrDeleteWithoutPrimaryKey
	}
	var questionIDs []uint
	if err := tx.Session(&gorm.Session{NewDB: true}).Model(&Question{}).
		Where("survey_section_id = ?", s.ID).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	return deleteQuestions(tx, questionIDs)
}

// Translation returns the section's title for locale, falling back to its
// own title. Survey must be loaded with its translations.
func (s *SurveySection) Translation(locale string) SectionTranslation {
	out := SectionTranslation{Title: stringPtr(s.Title)}
	if s.Survey == nil {
		return out
	}
	if t, ok := s.Survey.Translation(locale).Sections[s.ReferenceIdentifier]; ok {
		out.Title = pick(t.Title, out.Title)
	}
	return out
}

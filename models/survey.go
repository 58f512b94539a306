package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Survey struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	APIID               string    `json:"api_id" gorm:"size:36;uniqueIndex"`
	Title               string    `json:"title" gorm:"not null" validate:"required"`
	Description         string    `json:"description"`
	AccessCode          string    `json:"access_code" gorm:"uniqueIndex;not null"`
	ReferenceIdentifier string    `json:"reference_identifier"`
	UserID              uint      `json:"user_id" gorm:"not null;index" validate:"required"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Relationships
	Sections     []SurveySection     `json:"sections,omitempty" gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" validate:"-"`
	Translations []SurveyTranslation `json:"translations,omitempty" gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" validate:"-"`
}

var accessCodeSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeAccessCode turns a title into a URL-safe access code.
func NormalizeAccessCode(title string) string {
	code := accessCodeSeparators.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(code, "-")
}

func (s *Survey) BeforeCreate(tx *gorm.DB) error {
	if s.APIID == "" {
		s.APIID = uuid.NewString()
	}

	base := s.AccessCode
	if base == "" {
		base = NormalizeAccessCode(s.Title)
	}
	if base == "" {
		base = "survey"
	}

	// Suffix until unique: "my-survey", "my-survey-2", ...
	code := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Session(&gorm.Session{NewDB: true}).Model(&Survey{}).
			Where("access_code = ?", code).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			break
		}
		code = fmt.Sprintf("%s-%d", base, n)
	}
	s.AccessCode = code
	return nil
}

func (s *Survey) BeforeSave(tx *gorm.DB) error {
	return validateRecord("survey", s)
}

func (s *Survey) BeforeDelete(tx *gorm.DB) error {
	if s.ID == 0 {
		return ErrDeleteWithoutPrimaryKey
	}

	var sectionIDs []uint
	if err := tx.Session(&gorm.Session{NewDB: true}).Model(&SurveySection{}).
		Where("survey_id = ?", s.ID).Pluck("id", &sectionIDs).Error; err != nil {
		return err
	}
	if err := deleteSections(tx, sectionIDs); err != nil {
		return err
	}

	return tx.Session(&gorm.Session{NewDB: true}).
		Where("survey_id = ?", s.ID).Delete(&SurveyTranslation{}).Error
}

// Translation merges the survey's own title and description with the
// translation stored for locale. Sections and questions come only from the
// translation.
func (s *Survey) Translation(locale string) TranslationBlob {
	out := TranslationBlob{
		Title:       stringPtr(s.Title),
		Description: stringPtr(s.Description),
	}

	t := s.TranslationFor(locale)
	if t == nil {
		return out
	}
	blob, err := ParseTranslation(t.Translation)
	if err != nil {
		return out
	}

	out.Title = pick(blob.Title, out.Title)
	out.Description = pick(blob.Description, out.Description)
	out.Sections = blob.Sections
	out.Questions = blob.Questions
	return out
}

// TranslationFor returns the loaded translation for locale, or nil.
func (s *Survey) TranslationFor(locale string) *SurveyTranslation {
	for i := range s.Translations {
		if s.Translations[i].Locale == locale {
			return &s.Translations[i]
		}
	}
	return nil
}

// Package modeltest provides an in-memory database and record factories
// for tests.
package modeltest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"surveyor/models"
)

// SpanishTranslation is a translation blob covering the records built by
// CreateAnswerChain with the "name" reference identifiers.
const SpanishTranslation = `title: "Un idioma nunca es suficiente"
survey_sections:
  one:
    title: "Uno"
questions:
  name:
    text: "¿Cómo se llama usted?"
    answers:
      name:
        help_text: "Mi nombre es..."
`

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

// NewDB opens a fresh in-memory SQLite database with the full schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection would get its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

func CreateUser(t testing.TB, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Username:     fmt.Sprintf("author%d", next()),
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateSurvey(t testing.TB, db *gorm.DB, userID uint) *models.Survey {
	t.Helper()
	survey := &models.Survey{
		Title:  fmt.Sprintf("Survey %d", next()),
		UserID: userID,
	}
	require.NoError(t, db.Create(survey).Error)
	return survey
}

func CreateSection(t testing.TB, db *gorm.DB, surveyID uint) *models.SurveySection {
	t.Helper()
	section := &models.SurveySection{
		SurveyID:            surveyID,
		Title:               "One",
		ReferenceIdentifier: "one",
	}
	require.NoError(t, db.Create(section).Error)
	return section
}

func CreateQuestion(t testing.TB, db *gorm.DB, sectionID uint) *models.Question {
	t.Helper()
	question := &models.Question{
		SurveySectionID:     sectionID,
		Text:                "What is your name?",
		ReferenceIdentifier: "name",
		Pick:                "one",
	}
	require.NoError(t, db.Create(question).Error)
	return question
}

func CreateAnswer(t testing.TB, db *gorm.DB, questionID uint) *models.Answer {
	t.Helper()
	text := "My answer"
	answer := &models.Answer{
		QuestionID:          questionID,
		Text:                &text,
		ReferenceIdentifier: fmt.Sprintf("a%d", next()),
		ResponseClass:       "answer",
	}
	require.NoError(t, db.Create(answer).Error)
	return answer
}

func CreateValidation(t testing.TB, db *gorm.DB, answerID uint) *models.Validation {
	t.Helper()
	min := 1
	validation := &models.Validation{
		AnswerID: answerID,
		Rule:     "A",
		Message:  "must be positive",
		Conditions: []models.ValidationCondition{
			{RuleKey: "A", Operator: ">=", IntegerValue: &min},
		},
	}
	require.NoError(t, db.Create(validation).Error)
	return validation
}

func CreateTranslation(t testing.TB, db *gorm.DB, surveyID uint, locale, doc string) *models.SurveyTranslation {
	t.Helper()
	translation := &models.SurveyTranslation{
		SurveyID:    surveyID,
		Locale:      locale,
		Translation: doc,
	}
	require.NoError(t, db.Create(translation).Error)
	return translation
}

// Chain is a complete owner hierarchy ending in one answer.
type Chain struct {
	User     *models.User
	Survey   *models.Survey
	Section  *models.SurveySection
	Question *models.Question
	Answer   *models.Answer
}

func CreateAnswerChain(t testing.TB, db *gorm.DB) *Chain {
	t.Helper()
	c := &Chain{User: CreateUser(t, db)}
	c.Survey = CreateSurvey(t, db, c.User.ID)
	c.Section = CreateSection(t, db, c.Survey.ID)
	c.Question = CreateQuestion(t, db, c.Section.ID)
	c.Answer = CreateAnswer(t, db, c.Question.ID)
	return c
}

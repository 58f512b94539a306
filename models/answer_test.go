package models_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyor/models"
	"surveyor/models/modeltest"
)

func strPtr(s string) *string { return &s }

func TestAnswer_IsValid(t *testing.T) {
	db := modeltest.NewDB(t)
	c := modeltest.CreateAnswerChain(t, db)

	assert.NotZero(t, c.Answer.ID)
	assert.Len(t, c.Answer.APIID, 36)
	assert.False(t, c.Answer.CreatedAt.IsZero())
}

func TestAnswer_InvalidRecordIsNotPersisted(t *testing.T) {
	db := modeltest.NewDB(t)
	c := modeltest.CreateAnswerChain(t, db)

	cases := map[string]*models.Answer{
		"missing text":          {QuestionID: c.Question.ID},
		"missing question":      {Text: strPtr("Red")},
		"unknown display type":  {QuestionID: c.Question.ID, Text: strPtr("Red"), DisplayType: "sideways"},
		"unknown response type": {QuestionID: c.Question.ID, Text: strPtr("Red"), ResponseClass: "blob"},
	}
	for name, answer := range cases {
		t.Run(name, func(t *testing.T) {
			err := db.Create(answer).Error
			require.ErrorIs(t, err, models.ErrInvalidRecord)
			assert.Zero(t, answer.ID)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.Answer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAnswer_CSSClass(t *testing.T) {
	answer := &models.Answer{CustomClass: "foo bar"}
	assert.Equal(t, "foo bar", answer.CSSClass())

	answer.IsExclusive = true
	assert.Equal(t, "exclusive foo bar", answer.CSSClass())

	for _, class := range []string{"", " ", "x", "  padded  "} {
		answer := &models.Answer{CustomClass: class}
		assert.Equal(t, class, answer.CSSClass())
		answer.IsExclusive = true
		assert.Equal(t, "exclusive "+class, answer.CSSClass())
	}
}

func TestAnswer_SplitOrHiddenText(t *testing.T) {
	answer := &models.Answer{Text: strPtr("before|after|extra")}

	full, err := answer.SplitOrHiddenText(models.TextFull, nil)
	require.NoError(t, err)
	assert.Equal(t, "before|after|extra", full)

	pre, err := answer.SplitOrHiddenText(models.TextPre, nil)
	require.NoError(t, err)
	assert.Equal(t, "before", pre)

	post, err := answer.SplitOrHiddenText(models.TextPost, nil)
	require.NoError(t, err)
	assert.Equal(t, "after|extra", post)
}

func TestAnswer_SplitOrHiddenText_Reconstructs(t *testing.T) {
	for _, text := range []string{"a|b", "|", "|tail", "head|", "x|y|z", "one||two", "ünï|cödé"} {
		answer := &models.Answer{Text: strPtr(text)}
		pre, err := answer.SplitOrHiddenText(models.TextPre, nil)
		require.NoError(t, err)
		post, err := answer.SplitOrHiddenText(models.TextPost, nil)
		require.NoError(t, err)
		assert.Equal(t, text, pre+"|"+post, text)
	}
}

func TestAnswer_SplitOrHiddenText_NoDelimiter(t *testing.T) {
	answer := &models.Answer{Text: strPtr("Red")}

	pre, _ := answer.SplitOrHiddenText(models.TextPre, nil)
	post, _ := answer.SplitOrHiddenText(models.TextPost, nil)
	assert.Equal(t, "Red", pre)
	assert.Equal(t, "", post)

	answer.Text = nil
	full, err := answer.SplitOrHiddenText(models.TextFull, nil)
	require.NoError(t, err)
	assert.Equal(t, "", full)
}

func TestAnswer_HidesLabels(t *testing.T) {
	answer := &models.Answer{Text: strPtr("Red")}
	full, _ := answer.SplitOrHiddenText(models.TextFull, nil)
	assert.Equal(t, "Red", full)

	answer.DisplayType = models.DisplayTypeHiddenLabel
	for _, text := range []string{"Red", "a|b", "", "{{site}}"} {
		answer.Text = strPtr(text)
		for _, part := range []models.TextPart{models.TextFull, models.TextPre, models.TextPost} {
			got, err := answer.SplitOrHiddenText(part, map[string]string{"site": "x"})
			require.NoError(t, err)
			assert.Equal(t, "", got)
		}
	}
}

func TestAnswer_MustacheSubstitution(t *testing.T) {
	context := map[string]interface{}{"site": "Northwestern", "foo": "bar"}

	answer := &models.Answer{Text: strPtr("You are in {{site}}")}
	got, err := answer.SplitOrHiddenText(models.TextFull, context)
	require.NoError(t, err)
	assert.Equal(t, "You are in Northwestern", got)

	answer.Text = strPtr("{{foo}}|{{site}}")
	pre, err := answer.SplitOrHiddenText(models.TextPre, context)
	require.NoError(t, err)
	post, err := answer.SplitOrHiddenText(models.TextPost, context)
	require.NoError(t, err)
	assert.Equal(t, "bar", pre)
	assert.Equal(t, "Northwestern", post)
}

func TestAnswer_MustacheBadTemplate(t *testing.T) {
	answer := &models.Answer{Text: strPtr("{{#open}}never closed")}
	_, err := answer.SplitOrHiddenText(models.TextFull, map[string]string{})
	assert.ErrorIs(t, err, models.ErrInvalidTemplate)
}

func TestAnswer_PartialsNeverReadFiles(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("DB_PASSWORD=hunter2"), 0o600))

	answer := &models.Answer{Text: strPtr("before {{> " + secret + "}} after|{{> secret.txt}}")}
	got, err := answer.SplitOrHiddenText(models.TextFull, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "before  after|", got)
	assert.NotContains(t, got, "hunter2")
}

func TestParseTextPart(t *testing.T) {
	for in, want := range map[string]models.TextPart{"": models.TextFull, "pre": models.TextPre, " POST ": models.TextPost} {
		got, err := models.ParseTextPart(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := models.ParseTextPart("middle")
	assert.Error(t, err)
}

func TestAnswer_ProtectsAttributes(t *testing.T) {
	db := modeltest.NewDB(t)
	c := modeltest.CreateAnswerChain(t, db)

	attempts := map[string]interface{}{
		"api_id":     "NEW",
		"created_at": time.Now().Add(-72 * time.Hour),
		"updated_at": time.Now().Add(-3 * time.Hour),
		"id":         float64(999),
	}

	for attr, value := range attempts {
		t.Run(attr, func(t *testing.T) {
			var answer models.Answer
			require.NoError(t, db.First(&answer, c.Answer.ID).Error)
			saved := answer

			err := answer.AssignAttributes(map[string]interface{}{attr: value}, true)
			var massErr *models.MassAssignmentError
			require.ErrorAs(t, err, &massErr)
			assert.Equal(t, []string{attr}, massErr.Attributes)
			assert.Equal(t, saved, answer)

			require.NoError(t, answer.AssignAttributes(map[string]interface{}{attr: value}, false))
			assert.Equal(t, saved, answer)

			require.NoError(t, db.Save(&answer).Error)
			var reloaded models.Answer
			require.NoError(t, db.First(&reloaded, c.Answer.ID).Error)
			assert.Equal(t, saved.APIID, reloaded.APIID)
			assert.True(t, saved.CreatedAt.Equal(reloaded.CreatedAt))
		})
	}
}

func TestAnswer_AssignAttributes(t *testing.T) {
	answer := &models.Answer{Text: strPtr("Red"), APIID: "original"}

	err := answer.AssignAttributes(map[string]interface{}{
		"text":          "Blue",
		"help_text":     nil,
		"custom_class":  "wide",
		"is_exclusive":  true,
		"display_order": float64(3),
		"weight":        "7",
		"api_id":        "NEW",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "Blue", *answer.Text)
	assert.Nil(t, answer.HelpText)
	assert.Equal(t, "exclusive wide", answer.CSSClass())
	assert.Equal(t, 3, answer.DisplayOrder)
	require.NotNil(t, answer.Weight)
	assert.Equal(t, 7, *answer.Weight)
	assert.Equal(t, "original", answer.APIID)
}

func TestAnswer_AssignAttributes_StrictRejectsWholeBatch(t *testing.T) {
	answer := &models.Answer{Text: strPtr("Red"), APIID: "original"}

	err := answer.AssignAttributes(map[string]interface{}{
		"text":       "Blue",
		"updated_at": "2020-01-01T00:00:00Z",
		"api_id":     "NEW",
	}, true)

	var massErr *models.MassAssignmentError
	require.ErrorAs(t, err, &massErr)
	assert.Equal(t, []string{"api_id", "updated_at"}, massErr.Attributes)
	assert.Equal(t, "Red", *answer.Text)
	assert.Equal(t, "original", answer.APIID)
}

func TestAnswer_AssignAttributes_Errors(t *testing.T) {
	answer := &models.Answer{Text: strPtr("Red")}

	err := answer.AssignAttributes(map[string]interface{}{"colour": "red"}, false)
	var unknown *models.UnknownAttributeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "colour", unknown.Attribute)

	err = answer.AssignAttributes(map[string]interface{}{"text": "Blue", "is_exclusive": "maybe"}, false)
	var typeErr *models.AttributeTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "is_exclusive", typeErr.Attribute)
	assert.Equal(t, "Red", *answer.Text, "failed batch must not partially apply")

	err = answer.AssignAttributes(map[string]interface{}{"display_order": 1.5}, false)
	require.ErrorAs(t, err, &typeErr)

	err = answer.AssignAttributes(map[string]interface{}{"question_id": float64(-1)}, false)
	require.ErrorAs(t, err, &typeErr)
	assert.True(t, strings.Contains(typeErr.Error(), "question_id"))
}

func TestIsProtectedAnswerAttribute(t *testing.T) {
	for _, attr := range []string{"id", "api_id", "created_at", "updated_at"} {
		assert.True(t, models.IsProtectedAnswerAttribute(attr), attr)
	}
	assert.False(t, models.IsProtectedAnswerAttribute("text"))
}

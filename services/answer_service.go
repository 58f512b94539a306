package services

import (
	"context"
	"errors"
	"fmt"

	"surveyor/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrQuestionNotFound = errors.New("question not found")
)

type AnswerService struct {
	db          *gorm.DB
	cache       *TranslationCache
	broadcaster Broadcaster
	logger      *zap.Logger
	strict      bool
}

// NewAnswerService wires the answer operations. strict selects whether bulk
// updates naming protected attributes fail or silently drop them.
func NewAnswerService(db *gorm.DB, cache *TranslationCache, broadcaster Broadcaster, logger *zap.Logger, strict bool) *AnswerService {
	return &AnswerService{
		db:          db,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		strict:      strict,
	}
}

type CreateValidationRequest struct {
	Rule       string                   `json:"rule" binding:"required"`
	Message    string                   `json:"message"`
	Conditions []CreateConditionRequest `json:"conditions" binding:"required,min=1,dive"`
}

type CreateConditionRequest struct {
	RuleKey      string   `json:"rule_key" binding:"required"`
	Operator     string   `json:"operator" binding:"required"`
	IntegerValue *int     `json:"integer_value"`
	FloatValue   *float64 `json:"float_value"`
	StringValue  *string  `json:"string_value"`
	Regexp       *string  `json:"regexp"`
}

// AnswerView is an answer as served over the API, with its computed class.
type AnswerView struct {
	*models.Answer
	CSSClass string `json:"css_class"`
}

func NewAnswerView(a *models.Answer) *AnswerView {
	return &AnswerView{Answer: a, CSSClass: a.CSSClass()}
}

// ownedQuestion returns the survey id of a question the user owns.
func (s *AnswerService) ownedQuestion(ctx context.Context, questionID, userID uint) (uint, error) {
	var row struct {
		SurveyID uint
	}
	err := s.db.WithContext(ctx).Table("questions").
		Select("survey_sections.survey_id AS survey_id").
		Joins("JOIN survey_sections ON survey_sections.id = questions.survey_section_id").
		Joins("JOIN surveys ON surveys.id = survey_sections.survey_id").
		Where("questions.id = ? AND surveys.user_id = ?", questionID, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrQuestionNotFound
	}
	if err != nil {
		return 0, err
	}
	return row.SurveyID, nil
}

// surveyOf returns the id of the survey an answer belongs to, restricted to
// surveys owned by userID unless userID is zero.
func (s *AnswerService) surveyOf(ctx context.Context, answerID, userID uint) (uint, error) {
	var row struct {
		SurveyID uint
	}
	q := s.db.WithContext(ctx).Table("answers").
		Select("survey_sections.survey_id AS survey_id").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN survey_sections ON survey_sections.id = questions.survey_section_id").
		Joins("JOIN surveys ON surveys.id = survey_sections.survey_id").
		Where("answers.id = ?", answerID)
	if userID != 0 {
		q = q.Where("surveys.user_id = ?", userID)
	}
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrAnswerNotFound
	}
	if err != nil {
		return 0, err
	}
	return row.SurveyID, nil
}

func (s *AnswerService) broadcast(surveyID uint, messageType string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSurvey(surveyID, messageType, payload)
	}
}

func (s *AnswerService) CreateAnswer(ctx context.Context, userID, questionID uint, req *CreateAnswerRequest) (*models.Answer, error) {
	surveyID, err := s.ownedQuestion(ctx, questionID, userID)
	if err != nil {
		return nil, err
	}

	answer := req.ToModel(questionID)
	if err := s.db.WithContext(ctx).Create(answer).Error; err != nil {
		return nil, err
	}

	s.logger.Info("answer created", zap.Uint("answer_id", answer.ID), zap.Uint("question_id", questionID))
	s.broadcast(surveyID, "answer_created", NewAnswerView(answer))
	return answer, nil
}

func (s *AnswerService) GetAnswer(ctx context.Context, answerID uint) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.WithContext(ctx).
		Preload("Validations.Conditions").
		First(&answer, answerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnswerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// UpdateAnswer applies a bulk attribute update. Protected attributes never
// change: in strict mode their presence fails the whole update with a
// *models.MassAssignmentError, otherwise they are dropped.
func (s *AnswerService) UpdateAnswer(ctx context.Context, userID, answerID uint, attrs map[string]interface{}) (*models.Answer, error) {
	surveyID, err := s.surveyOf(ctx, answerID, userID)
	if err != nil {
		return nil, err
	}

	var answer models.Answer
	if err := s.db.WithContext(ctx).First(&answer, answerID).Error; err != nil {
		return nil, err
	}

	if err := answer.AssignAttributes(attrs, s.strict); err != nil {
		var massErr *models.MassAssignmentError
		if errors.As(err, &massErr) {
			s.logger.Warn("rejected protected attribute assignment",
				zap.Uint("answer_id", answerID),
				zap.Uint("user_id", userID),
				zap.Strings("attributes", massErr.Attributes))
		}
		return nil, err
	}

	if answer.QuestionID != 0 {
		if _, err := s.ownedQuestion(ctx, answer.QuestionID, userID); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Save(&answer).Error; err != nil {
		return nil, err
	}

	s.cache.InvalidateAnswer(ctx, answerID)
	s.broadcast(surveyID, "answer_updated", NewAnswerView(&answer))
	return &answer, nil
}

// DeleteAnswer removes the answer together with its validations in one
// transaction.
func (s *AnswerService) DeleteAnswer(ctx context.Context, userID, answerID uint) error {
	surveyID, err := s.surveyOf(ctx, answerID, userID)
	if err != nil {
		return err
	}

	var answer models.Answer
	if err := s.db.WithContext(ctx).First(&answer, answerID).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&answer).Error; err != nil {
		return fmt.Errorf("delete answer %d: %w", answerID, err)
	}

	s.cache.InvalidateAnswer(ctx, answerID)
	s.logger.Info("answer deleted", zap.Uint("answer_id", answerID), zap.Uint("user_id", userID))
	s.broadcast(surveyID, "answer_deleted", map[string]interface{}{"id": answerID})
	return nil
}

// RenderText returns one part of the answer text, rendered against vars
// when they are non-nil.
func (s *AnswerService) RenderText(ctx context.Context, answerID uint, part models.TextPart, vars map[string]interface{}) (string, error) {
	answer, err := s.GetAnswer(ctx, answerID)
	if err != nil {
		return "", err
	}
	// A nil map must not reach the renderer as a non-nil interface.
	if vars == nil {
		return answer.SplitOrHiddenText(part, nil)
	}
	return answer.SplitOrHiddenText(part, vars)
}

// GetTranslation resolves the answer's text, help text and default value
// for locale, served from the translation cache when possible.
func (s *AnswerService) GetTranslation(ctx context.Context, answerID uint, locale string) (*models.AnswerTranslation, error) {
	if cached, ok := s.cache.GetAnswer(ctx, answerID, locale); ok {
		return cached, nil
	}

	surveyID, err := s.surveyOf(ctx, answerID, 0)
	if err != nil {
		return nil, err
	}
	gen := s.cache.Generation(ctx, surveyID, answerID)

	var answer models.Answer
	err = s.db.WithContext(ctx).
		Preload("Question.SurveySection.Survey.Translations", "locale = ?", locale).
		First(&answer, answerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnswerNotFound
	}
	if err != nil {
		return nil, err
	}

	t := answer.Translation(locale)
	s.cache.SetAnswer(ctx, gen, surveyID, answerID, locale, t)
	return &t, nil
}

func (s *AnswerService) AddValidation(ctx context.Context, userID, answerID uint, req *CreateValidationRequest) (*models.Validation, error) {
	if _, err := s.surveyOf(ctx, answerID, userID); err != nil {
		return nil, err
	}

	validation := models.Validation{
		AnswerID: answerID,
		Rule:     req.Rule,
		Message:  req.Message,
	}
	for _, c := range req.Conditions {
		validation.Conditions = append(validation.Conditions, models.ValidationCondition{
			RuleKey:      c.RuleKey,
			Operator:     c.Operator,
			IntegerValue: c.IntegerValue,
			FloatValue:   c.FloatValue,
			StringValue:  c.StringValue,
			Regexp:       c.Regexp,
		})
	}

	if err := s.db.WithContext(ctx).Create(&validation).Error; err != nil {
		return nil, err
	}
	return &validation, nil
}

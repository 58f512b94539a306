package services

import (
	"context"
	"errors"
	"strings"

	"surveyor/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSurveyNotFound = errors.New("survey not found")

type SurveyService struct {
	db     *gorm.DB
	cache  *TranslationCache
	logger *zap.Logger
}

func NewSurveyService(db *gorm.DB, cache *TranslationCache, logger *zap.Logger) *SurveyService {
	return &SurveyService{db: db, cache: cache, logger: logger}
}

type CreateSurveyRequest struct {
	Title               string                 `json:"title" binding:"required"`
	Description         string                 `json:"description"`
	AccessCode          string                 `json:"access_code"`
	ReferenceIdentifier string                 `json:"reference_identifier"`
	Sections            []CreateSectionRequest `json:"sections" binding:"dive"`
}

type CreateSectionRequest struct {
	Title               string                  `json:"title" binding:"required"`
	Description         string                  `json:"description"`
	ReferenceIdentifier string                  `json:"reference_identifier"`
	DisplayOrder        int                     `json:"display_order"`
	Questions           []CreateQuestionRequest `json:"questions" binding:"dive"`
}

type CreateQuestionRequest struct {
	Text                string                `json:"text" binding:"required"`
	HelpText            *string               `json:"help_text"`
	ReferenceIdentifier string                `json:"reference_identifier"`
	Pick                string                `json:"pick" binding:"omitempty,oneof=none one any"`
	DisplayOrder        int                   `json:"display_order"`
	Answers             []CreateAnswerRequest `json:"answers" binding:"dive"`
}

type CreateAnswerRequest struct {
	Text                 string  `json:"text" binding:"required"`
	ShortText            string  `json:"short_text"`
	HelpText             *string `json:"help_text"`
	DefaultValue         *string `json:"default_value"`
	ReferenceIdentifier  string  `json:"reference_identifier"`
	DataExportIdentifier string  `json:"data_export_identifier"`
	CustomClass          string  `json:"custom_class"`
	IsExclusive          bool    `json:"is_exclusive"`
	DisplayType          string  `json:"display_type" binding:"omitempty,oneof=default label image hidden_label"`
	ResponseClass        string  `json:"response_class" binding:"omitempty,oneof=answer string text integer float date time datetime"`
	DisplayOrder         int     `json:"display_order"`
	Weight               *int    `json:"weight"`
	InputMask            string  `json:"input_mask"`
	InputMaskPlaceholder string  `json:"input_mask_placeholder"`
}

func (r *CreateAnswerRequest) ToModel(questionID uint) *models.Answer {
	text := r.Text
	responseClass := r.ResponseClass
	if responseClass == "" {
		responseClass = "answer"
	}
	return &models.Answer{
		QuestionID:           questionID,
		Text:                 &text,
		ShortText:            r.ShortText,
		HelpText:             r.HelpText,
		DefaultValue:         r.DefaultValue,
		ReferenceIdentifier:  r.ReferenceIdentifier,
		DataExportIdentifier: r.DataExportIdentifier,
		CustomClass:          r.CustomClass,
		IsExclusive:          r.IsExclusive,
		DisplayType:          r.DisplayType,
		ResponseClass:        responseClass,
		DisplayOrder:         r.DisplayOrder,
		Weight:               r.Weight,
		InputMask:            r.InputMask,
		InputMaskPlaceholder: r.InputMaskPlaceholder,
	}
}

func (s *SurveyService) CreateSurvey(ctx context.Context, userID uint, req *CreateSurveyRequest) (*models.Survey, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	survey := models.Survey{
		Title:               req.Title,
		Description:         req.Description,
		AccessCode:          req.AccessCode,
		ReferenceIdentifier: req.ReferenceIdentifier,
		UserID:              userID,
	}
	if err := tx.Create(&survey).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, sReq := range req.Sections {
		section := models.SurveySection{
			SurveyID:            survey.ID,
			Title:               sReq.Title,
			Description:         sReq.Description,
			ReferenceIdentifier: sReq.ReferenceIdentifier,
			DisplayOrder:        sReq.DisplayOrder,
		}
		if err := tx.Create(&section).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		for _, qReq := range sReq.Questions {
			pick := qReq.Pick
			if pick == "" {
				pick = "none"
			}
			question := models.Question{
				SurveySectionID:     section.ID,
				Text:                qReq.Text,
				HelpText:            qReq.HelpText,
				ReferenceIdentifier: qReq.ReferenceIdentifier,
				Pick:                pick,
				DisplayOrder:        qReq.DisplayOrder,
			}
			if err := tx.Create(&question).Error; err != nil {
				tx.Rollback()
				return nil, err
			}

			for i := range qReq.Answers {
				if err := tx.Create(qReq.Answers[i].ToModel(question.ID)).Error; err != nil {
					tx.Rollback()
					return nil, err
				}
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.logger.Info("survey created",
		zap.Uint("survey_id", survey.ID),
		zap.Uint("user_id", userID),
		zap.String("access_code", survey.AccessCode))
	return s.GetSurveyByID(ctx, survey.ID, userID)
}

func (s *SurveyService) surveyTree(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("survey_sections.display_order, survey_sections.id")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.display_order, questions.id")
		}).
		Preload("Sections.Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.display_order, answers.id")
		}).
		Preload("Translations")
}

func (s *SurveyService) GetUserSurveys(ctx context.Context, userID uint) ([]models.Survey, error) {
	var surveys []models.Survey
	err := s.surveyTree(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&surveys).Error
	return surveys, err
}

func (s *SurveyService) GetSurveyByID(ctx context.Context, surveyID, userID uint) (*models.Survey, error) {
	var survey models.Survey
	err := s.surveyTree(ctx).
		Where("id = ? AND user_id = ?", surveyID, userID).
		First(&survey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSurveyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

func (s *SurveyService) ownedSurvey(ctx context.Context, surveyID, userID uint) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", surveyID, userID).First(&survey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSurveyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

func (s *SurveyService) DeleteSurvey(ctx context.Context, surveyID, userID uint) error {
	survey, err := s.ownedSurvey(ctx, surveyID, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(survey).Error; err != nil {
		return err
	}

	s.cache.InvalidateSurvey(ctx, surveyID)
	s.logger.Info("survey deleted", zap.Uint("survey_id", surveyID), zap.Uint("user_id", userID))
	return nil
}

// UpsertTranslation stores the YAML translation of a survey for locale,
// replacing any previous one.
func (s *SurveyService) UpsertTranslation(ctx context.Context, surveyID, userID uint, locale, doc string) (*models.SurveyTranslation, error) {
	if _, err := s.ownedSurvey(ctx, surveyID, userID); err != nil {
		return nil, err
	}

	locale = strings.TrimSpace(locale)
	var translation models.SurveyTranslation
	err := s.db.WithContext(ctx).Where("survey_id = ? AND locale = ?", surveyID, locale).First(&translation).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		translation = models.SurveyTranslation{SurveyID: surveyID, Locale: locale}
	case err != nil:
		return nil, err
	}

	translation.Translation = doc
	if err := s.db.WithContext(ctx).Save(&translation).Error; err != nil {
		return nil, err
	}

	s.cache.InvalidateSurvey(ctx, surveyID)
	s.logger.Info("survey translation saved", zap.Uint("survey_id", surveyID), zap.String("locale", locale))
	return &translation, nil
}

func (s *SurveyService) DeleteTranslation(ctx context.Context, surveyID, userID uint, locale string) error {
	if _, err := s.ownedSurvey(ctx, surveyID, userID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("survey_id = ? AND locale = ?", surveyID, strings.TrimSpace(locale)).
		Delete(&models.SurveyTranslation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	s.cache.InvalidateSurvey(ctx, surveyID)
	return nil
}

// GetTranslation resolves the survey-level translation for locale. It is
// public: respondents see translated surveys without an account.
func (s *SurveyService) GetTranslation(ctx context.Context, surveyID uint, locale string) (*models.TranslationBlob, error) {
	var survey models.Survey
	err := s.db.WithContext(ctx).
		Preload("Translations", "locale = ?", locale).
		First(&survey, surveyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSurveyNotFound
	}
	if err != nil {
		return nil, err
	}

	blob := survey.Translation(locale)
	return &blob, nil
}

package handlers

import (
	"io"
	"net/http"

	"surveyor/services"

	"github.com/gin-gonic/gin"
)

// maxTranslationSize bounds the YAML body accepted for one locale.
const maxTranslationSize = 1 << 20

type SurveyHandler struct {
	surveyService *services.SurveyService
}

func NewSurveyHandler(surveyService *services.SurveyService) *SurveyHandler {
	return &SurveyHandler{
		surveyService: surveyService,
	}
}

func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	survey, err := h.surveyService.CreateSurvey(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

func (h *SurveyHandler) GetUserSurveys(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	surveys, err := h.surveyService.GetUserSurveys(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, surveys)
}

func (h *SurveyHandler) GetSurveyByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	surveyID, ok := paramID(c, "survey")
	if !ok {
		return
	}

	survey, err := h.surveyService.GetSurveyByID(c.Request.Context(), surveyID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	surveyID, ok := paramID(c, "survey")
	if !ok {
		return
	}

	if err := h.surveyService.DeleteSurvey(c.Request.Context(), surveyID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Survey deleted successfully"})
}

// PutTranslation takes the raw YAML document as the request body.
func (h *SurveyHandler) PutTranslation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	surveyID, ok := paramID(c, "survey")
	if !ok {
		return
	}
	locale, ok := paramLocale(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTranslationSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	if len(body) > maxTranslationSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Translation too large"})
		return
	}

	translation, err := h.surveyService.UpsertTranslation(c.Request.Context(), surveyID, userID, locale, string(body))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, translation)
}

func (h *SurveyHandler) DeleteTranslation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	surveyID, ok := paramID(c, "survey")
	if !ok {
		return
	}

	locale, ok := paramLocale(c)
	if !ok {
		return
	}

	if err := h.surveyService.DeleteTranslation(c.Request.Context(), surveyID, userID, locale); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Translation deleted successfully"})
}

func (h *SurveyHandler) GetTranslation(c *gin.Context) {
	surveyID, ok := paramID(c, "survey")
	if !ok {
		return
	}

	locale, ok := paramLocale(c)
	if !ok {
		return
	}

	blob, err := h.surveyService.GetTranslation(c.Request.Context(), surveyID, locale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, blob)
}

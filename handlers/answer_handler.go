package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"surveyor/models"
	"surveyor/services"

	"github.com/gin-gonic/gin"
)

type AnswerHandler struct {
	answerService *services.AnswerService
}

func NewAnswerHandler(answerService *services.AnswerService) *AnswerHandler {
	return &AnswerHandler{
		answerService: answerService,
	}
}

type RenderTextRequest struct {
	Part    string                 `json:"part"`
	Context map[string]interface{} `json:"context"`
}

func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questionID, ok := paramID(c, "question")
	if !ok {
		return
	}

	var req services.CreateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.answerService.CreateAnswer(c.Request.Context(), userID, questionID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, services.NewAnswerView(answer))
}

func (h *AnswerHandler) GetAnswer(c *gin.Context) {
	answerID, ok := paramID(c, "answer")
	if !ok {
		return
	}

	answer, err := h.answerService.GetAnswer(c.Request.Context(), answerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, services.NewAnswerView(answer))
}

// UpdateAnswer applies the request body as a bulk attribute update.
func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	answerID, ok := paramID(c, "answer")
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	var attrs map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil || attrs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must be a JSON object"})
		return
	}

	answer, err := h.answerService.UpdateAnswer(c.Request.Context(), userID, answerID, attrs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, services.NewAnswerView(answer))
}

func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	answerID, ok := paramID(c, "answer")
	if !ok {
		return
	}

	if err := h.answerService.DeleteAnswer(c.Request.Context(), userID, answerID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}

func (h *AnswerHandler) RenderText(c *gin.Context) {
	answerID, ok := paramID(c, "answer")
	if !ok {
		return
	}

	var req RenderTextRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	part, err := models.ParseTextPart(req.Part)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := h.answerService.RenderText(c.Request.Context(), answerID, part, req.Context)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *AnswerHandler) GetTranslation(c *gin.Context) {
	answerID, ok := paramID(c, "answer")
	if !ok {
		return
	}

	locale, ok := paramLocale(c)
	if !ok {
		return
	}

	translation, err := h.answerService.GetTranslation(c.Request.Context(), answerID, locale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, translation)
}

func (h *AnswerHandler) AddValidation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	answerID, ok := paramID(c, "answer")
	if !ok {
		return
	}

	var req services.CreateValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validation, err := h.answerService.AddValidation(c.Request.Context(), userID, answerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, validation)
}

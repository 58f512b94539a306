package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"surveyor/models"
	"surveyor/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// statusFor maps a service error onto its HTTP status.
func statusFor(err error) int {
	var (
		massErr    *models.MassAssignmentError
		unknownErr *models.UnknownAttributeError
		typeErr    *models.AttributeTypeError
	)
	switch {
	case errors.As(err, &massErr):
		return http.StatusForbidden
	case errors.As(err, &unknownErr), errors.As(err, &typeErr),
		errors.Is(err, models.ErrInvalidRecord), errors.Is(err, models.ErrInvalidTranslation),
		errors.Is(err, models.ErrInvalidTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, services.ErrSurveyNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrAnswerNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	id, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return id, true
}

func paramID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return uint(id), true
}

func paramLocale(c *gin.Context) (string, bool) {
	locale := c.Param("locale")
	if !models.ValidLocale(locale) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid locale"})
		return "", false
	}
	return locale, true
}

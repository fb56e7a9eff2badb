package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/infra/oauth"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// RespondWithServiceError resolves validation, business rule, and provider
// errors before consulting the sentinel cases.
func RespondWithServiceError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, validationErr.Error()))
		return
	}

	var ruleErr *domain.BusinessRuleError
	if errors.As(err, &ruleErr) {
		c.JSON(http.StatusConflict, NewErrorResponse(c, ruleErr.Error()))
		return
	}

	var providerErr *oauth.Error
	if errors.As(err, &providerErr) {
		switch providerErr.Code {
		case oauth.CodeInvalidProvider:
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unsupported provider"))
		case oauth.CodeInvalidState:
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "state is missing, expired, or already used"))
		default:
			c.JSON(http.StatusBadGateway, NewErrorResponse(c, "provider request failed"))
		}
		return
	}

	RespondWithMappedError(c, err, cases, fallbackStatus, fallbackMessage)
}

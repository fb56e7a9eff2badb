package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tetardtek/superoauth/internal/transport/http/middleware"
	"github.com/tetardtek/superoauth/internal/usecase"
)

// OAuthHandler exposes social sign-in and account linking endpoints.
type OAuthHandler struct {
	oauth *usecase.OAuthService
	auth  *usecase.AuthService
}

// NewOAuthHandler constructs OAuthHandler.
func NewOAuthHandler(oauth *usecase.OAuthService, auth *usecase.AuthService) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, auth: auth}
}

// RegisterRoutes binds OAuth routes under the provided group. Start and
// callback are anonymous; link and unlink require an authenticated caller.
func (h *OAuthHandler) RegisterRoutes(r *gin.RouterGroup, startMiddlewares ...gin.HandlerFunc) {
	r.GET("/:provider/start", chain(startMiddlewares, h.start)...)
	r.POST("/:provider/callback", h.callback)

	requireAuth := middleware.RequireAuth(h.auth)
	r.POST("/:provider/link", requireAuth, h.link)
	r.DELETE("/:provider/link", requireAuth, h.unlink)
}

// Start godoc
// @Summary Begin the OAuth authorization flow
// @Description Returns the provider authorization URL the client should redirect to.
// @Tags OAuth
// @Produce json
// @Param provider path string true "Provider name (discord, google, github, twitch)"
// @Param redirect query string false "Post-login redirect hint"
// @Success 200 {object} OAuthStartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/oauth/{provider}/start [get]
func (h *OAuthHandler) start(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	redirectHint := c.Query("redirect")

	authURL, state, err := h.oauth.Start(c.Request.Context(), provider, redirectHint)
	if err != nil {
		RespondWithServiceError(c, err, nil, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	c.JSON(http.StatusOK, OAuthStartResponse{
		AuthorizationURL: authURL,
		State:            state,
		Provider:         provider,
	})
}

// Callback godoc
// @Summary Complete the OAuth authorization flow
// @Description Exchanges the authorization code, then signs in, auto-links, or registers the user.
// @Tags OAuth
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Param request body OAuthCallbackRequest true "Callback payload"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/oauth/{provider}/callback [post]
func (h *OAuthHandler) callback(c *gin.Context) {
	var req OAuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code and state are required"))
		return
	}

	result, err := h.oauth.Complete(c.Request.Context(), usecase.CompleteInput{
		Provider:  strings.ToLower(strings.TrimSpace(c.Param("provider"))),
		Code:      req.Code,
		State:     req.State,
		IP:        clientIP(c),
		UserAgent: userAgent(c),
	})
	if err != nil {
		RespondWithServiceError(c, err, []ErrorCase{
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account inactive"},
		}, http.StatusInternalServerError, "failed to complete authorization")
		return
	}

	status := http.StatusOK
	if result.IsNewUser {
		status = http.StatusCreated
	}
	c.JSON(status, newAuthResponse(result))
}

// Link godoc
// @Summary Link a provider identity to the authenticated user
// @Tags OAuth
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Param request body OAuthCallbackRequest true "Callback payload"
// @Success 200 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/oauth/{provider}/link [post]
func (h *OAuthHandler) link(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req OAuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code and state are required"))
		return
	}

	dto, err := h.oauth.Link(c.Request.Context(), usecase.LinkInput{
		UserID:   userID,
		Provider: strings.ToLower(strings.TrimSpace(c.Param("provider"))),
		Code:     req.Code,
		State:    req.State,
	})
	if err != nil {
		RespondWithServiceError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountConflict, Status: http.StatusConflict, Message: "provider identity belongs to another account"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to link account")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*dto))
}

// Unlink godoc
// @Summary Remove a provider identity from the authenticated user
// @Tags OAuth
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/oauth/{provider}/link [delete]
func (h *OAuthHandler) unlink(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	dto, err := h.oauth.Unlink(c.Request.Context(), userID, strings.ToLower(strings.TrimSpace(c.Param("provider"))))
	if err != nil {
		RespondWithServiceError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to unlink account")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*dto))
}

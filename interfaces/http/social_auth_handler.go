package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type ISocialAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
}

type SocialAuthHandler struct {
	oauthUsecase        usecase.IOAuthUsecase
	frontendRedirectURL string
}

// NewSocialAuthHandler answers callbacks with JSON, or with a redirect to
// frontendRedirectURL when it is set.
func NewSocialAuthHandler(oauthUsecase usecase.IOAuthUsecase, frontendRedirectURL string) ISocialAuthHandler {
	return &SocialAuthHandler{oauthUsecase: oauthUsecase, frontendRedirectURL: frontendRedirectURL}
}

// GetAuthURL handles GET /social/auth/:platform
func (h *SocialAuthHandler) GetAuthURL(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	p, known := model.ParsePlatform(ctx.Param("platform"))
	if !known {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "platform not supported: " + string(p)})
		return
	}
	res, err := h.oauthUsecase.StartLink(ctx.Request.Context(), userID, p)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Callback handles GET /social/auth/:platform/callback
func (h *SocialAuthHandler) Callback(ctx *gin.Context) {
	p, known := model.ParsePlatform(ctx.Param("platform"))
	if !known {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "platform not supported: " + string(p)})
		return
	}
	params := usecase.CallbackParams{
		Code:             ctx.Query("code"),
		State:            ctx.Query("state"),
		Error:            ctx.Query("error"),
		ErrorDescription: ctx.Query("error_description"),
	}

	res, err := h.oauthUsecase.HandleCallback(ctx.Request.Context(), p, params)
	if err != nil {
		h.callbackFailed(ctx, p, err)
		return
	}

	if h.frontendRedirectURL != "" {
		h.redirect(ctx, url.Values{
			"oauth_status": {"linked"},
			"platform":     {string(p)},
			"account":      {res.Credential.ID},
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":   strings.ToLower(string(res.State)),
		"platform": p,
		"account":  dto.NewAccountResponse(res.Credential),
	})
}

func (h *SocialAuthHandler) callbackFailed(ctx *gin.Context, p model.Platform, err error) {
	state := "failed"
	step := ""
	var le *usecase.LinkError
	if errors.As(err, &le) {
		step = le.Step
		switch le.State {
		case model.LinkStateDenied, model.LinkStateInvalidState, model.LinkStateExpired:
			state = strings.ToLower(string(le.State))
		}
	}
	logger.GetLogger().WithField("platform", p).WithField("step", step).WithField("error", err).Warn("OAuth callback failed")

	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}

	if h.frontendRedirectURL != "" {
		h.redirect(ctx, url.Values{
			"oauth_status": {state},
			"platform":     {string(p)},
			"error":        {msg},
		})
		return
	}
	ctx.JSON(status, gin.H{"status": state, "platform": p, "step": step, "error": msg})
}

func (h *SocialAuthHandler) redirect(ctx *gin.Context, q url.Values) {
	target, err := url.Parse(h.frontendRedirectURL)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Invalid frontend redirect url")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	existing := target.Query()
	for k, v := range q {
		existing[k] = v
	}
	target.RawQuery = existing.Encode()
	ctx.Redirect(http.StatusFound, target.String())
}

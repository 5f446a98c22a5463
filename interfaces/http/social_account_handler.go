package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type ISocialAccountHandler interface {
	AddAccount(ctx *gin.Context)
	ListAccounts(ctx *gin.Context)
	DeleteAccount(ctx *gin.Context)
	Platforms(ctx *gin.Context)
}

type SocialAccountHandler struct {
	accountUsecase usecase.IAccountUsecase
}

func NewSocialAccountHandler(accountUsecase usecase.IAccountUsecase) ISocialAccountHandler {
	return &SocialAccountHandler{accountUsecase: accountUsecase}
}

func (h *SocialAccountHandler) AddAccount(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.AddAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error())})
		return
	}
	cred, err := h.accountUsecase.AddAccount(ctx.Request.Context(), userID, req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAccountResponse(cred))
}

func (h *SocialAccountHandler) ListAccounts(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	creds, err := h.accountUsecase.ListAccounts(ctx.Request.Context(), userID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	accounts := make([]dto.AccountResponse, 0, len(creds))
	for _, c := range creds {
		accounts = append(accounts, dto.NewAccountResponse(c))
	}
	ctx.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *SocialAccountHandler) DeleteAccount(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := h.accountUsecase.DeleteAccount(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *SocialAccountHandler) Platforms(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"platforms": h.accountUsecase.Platforms()})
}

package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"
)

type ISocialPostHandler interface {
	Publish(ctx *gin.Context)
	ListPosts(ctx *gin.Context)
	GetPost(ctx *gin.Context)
	GetMetrics(ctx *gin.Context)
}

type SocialPostHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewSocialPostHandler(publishUsecase usecase.IPublishUsecase) ISocialPostHandler {
	return &SocialPostHandler{publishUsecase: publishUsecase}
}

// Publish handles POST /social/post. Per platform failures are part of a 200 response.
func (h *SocialPostHandler) Publish(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error())})
		return
	}
	results, err := h.publishUsecase.Publish(ctx.Request.Context(), userID, req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"video_id": req.VideoID, "results": results})
}

func (h *SocialPostHandler) ListPosts(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	posts, err := h.publishUsecase.ListPosts(ctx.Request.Context(), userID, limit, offset)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if posts == nil {
		posts = []*model.Post{}
	}
	ctx.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *SocialPostHandler) GetPost(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	post, err := h.publishUsecase.GetPost(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

// GetMetrics handles GET /social/posts/:id/metrics
func (h *SocialPostHandler) GetMetrics(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	metrics, err := h.publishUsecase.GetMetrics(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, metrics)
}

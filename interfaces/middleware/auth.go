package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// Auth validates the HS256 bearer token and sets user_id for the handlers.
func Auth(userRepository repository.IUser, secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" || secretKey == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		auth := strings.Split(authorization, "Bearer ")
		if len(auth) != 2 || auth[1] == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		userClaims, token, err := getClaim(auth[1], secretKey)
		if err != nil || token == nil || !token.Valid {
			res.ResponseMessage = abortMessage(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if !next(ctx, userRepository, userClaims) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
		}
	}
}

func abortMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Unauthorized"
}

func next(ctx *gin.Context, userRepository repository.IUser, userClaims model.UserClaims) bool {
	user, err := userRepository.GetByUserName(ctx.Request.Context(), userClaims.UserName)
	if err != nil {
		logger.GetLogger().WithField("user_name", userClaims.UserName).WithField("error", err).Warn("User not found")
		return false
	}
	if !user.IsActive {
		logger.GetLogger().WithField("user_name", userClaims.UserName).Warn("User is inactive")
		return false
	}
	ctx.Set("user_id", user.ID)
	ctx.Next()
	return true
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&userClaims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	return userClaims, token, err
}

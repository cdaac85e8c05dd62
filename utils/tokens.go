package utils

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type AccessToken struct {
	ID   uint   `json:"ID"`
	Role string `json:"role"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenManager signs access/refresh pairs and tracks live refresh tokens in
// redis so they can be rotated exactly once.
type TokenManager struct {
	Redis *redis.Client
}

func NewTokenManager(rdb *redis.Client) *TokenManager {
	return &TokenManager{Redis: rdb}
}

const refreshTokenTTL = 365 * 24 * time.Hour

func (tm *TokenManager) CreateTokenPair(id uint, role string) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), refreshTokenTTL)

	userID := strconv.FormatUint(uint64(id), 10)

	if role == "" {
		role = "user"
	}

	accessToken, err := accessTokenSigner.Sign(AccessToken{ID: id, Role: role})
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(jwt.Claims{Subject: userID})
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	tm.Redis.Set(context.Background(), string(refreshToken), "true", refreshTokenTTL+5*time.Minute)

	return &tokenPair, nil
}

// Refresh rotates a verified refresh token: the old token is invalidated and
// a new pair is issued. lookupRole resolves the user's current role so role
// changes take effect on rotation.
func (tm *TokenManager) Refresh(ctx iris.Context, lookupRole func(id uint) string) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)

	bg := context.Background()
	validToken, tokenErr := tm.Redis.Get(bg, tokenStr).Result()
	if tokenErr != nil {
		CreateNotFound(ctx)
		return
	}
	if validToken != "true" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	tm.Redis.Del(bg, tokenStr)
	userID, parseErr := strconv.ParseUint(token.StandardClaims.Subject, 10, 32)
	if parseErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	role := ""
	if lookupRole != nil {
		role = lookupRole(uint(userID))
	}

	tokenPair, tokenPairErr := tm.CreateTokenPair(uint(userID), role)
	if tokenPairErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	Success(ctx, iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

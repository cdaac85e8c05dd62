package routes

import (
	"errors"
	"strings"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/utils"
)

// UserHandler owns the auth and account endpoints.
type UserHandler struct {
	DB     *gorm.DB
	Tokens *utils.TokenManager
}

func NewUserHandler(db *gorm.DB, tokens *utils.TokenManager) *UserHandler {
	return &UserHandler{DB: db, Tokens: tokens}
}

type RegisterUserInput struct {
	FirstName string `json:"firstName" validate:"required,max=256"`
	LastName  string `json:"lastName" validate:"required,max=256"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
}

func (h *UserHandler) Register(ctx iris.Context) {
	var input RegisterUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing models.User
	err := h.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "an account with this email already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateInternalServerError(ctx)
		return
	}

	hashed, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	user := models.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     email,
		Password:  hashed,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	h.respondWithTokens(ctx, &user)
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *UserHandler) Login(ctx iris.Context) {
	var input LoginUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil {
		utils.Error(ctx, iris.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		utils.Error(ctx, iris.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	h.respondWithTokens(ctx, &user)
}

// Refresh rotates the refresh token presented by the verifier middleware.
func (h *UserHandler) Refresh(ctx iris.Context) {
	h.Tokens.Refresh(ctx, func(id uint) string {
		var u models.User
		if err := h.DB.Select("id, role").First(&u, id).Error; err != nil || u.Role == "" {
			return "user"
		}
		return u.Role
	})
}

func (h *UserHandler) Me(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var user models.User
	if err := h.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	utils.Success(ctx, newUserResponse(&user))
}

func (h *UserHandler) respondWithTokens(ctx iris.Context, user *models.User) {
	tokenPair, err := h.Tokens.CreateTokenPair(user.ID, user.Role)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Success(ctx, iris.Map{
		"user":         newUserResponse(user),
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func hashAndSaltPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

package routes

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/utils"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

func (h *NotificationHandler) GetNotifications(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var notifications []models.Notification
	q := h.DB.Where("user_id = ?", claims.ID).Order("created_at DESC").Limit(100)
	if ctx.URLParamDefault("unread", "") == "true" {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Find(&notifications).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Success(ctx, notifications)
}

func (h *NotificationHandler) MarkRead(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.Error(ctx, iris.StatusBadRequest, "Bad Request", "invalid notification id")
		return
	}

	res := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, claims.ID).
		Update("is_read", true)
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if res.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	utils.SuccessMessage(ctx, nil, "notification marked read")
}

package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// AdminOnlyMiddleware ensures the requester has the admin role
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	if claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"success": false, "error": "Forbidden", "message": "admin access required"})
		return
	}
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// Every endpoint answers with the same envelope: {success, data|error, message?}.

func Success(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"success": true, "data": data})
}

func SuccessMessage(ctx iris.Context, data interface{}, message string) {
	ctx.JSON(iris.Map{"success": true, "data": data, "message": message})
}

func Error(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"success": false, "error": code, "message": message})
}

// ErrorDetail carries structured detail (field errors, price breakdowns) next
// to the message.
func ErrorDetail(ctx iris.Context, status int, code, message string, detail interface{}) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"success": false, "error": code, "message": message, "detail": detail})
}

func CreateNotFound(ctx iris.Context) {
	Error(ctx, iris.StatusNotFound, "Not Found", "resource not found")
}

func CreateForbidden(ctx iris.Context) {
	Error(ctx, iris.StatusForbidden, "Forbidden", "you may not act on this resource")
}

func CreateInternalServerError(ctx iris.Context) {
	Error(ctx, iris.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred")
}

type validationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value,omitempty"`
}

// HandleValidationErrors turns a ReadJSON/validator failure into a 400 with
// field-level detail.
func HandleValidationErrors(err error, ctx iris.Context) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		detail := make([]validationError, 0, len(errs))
		for _, fe := range errs {
			detail = append(detail, validationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Value: fe.Param(),
			})
		}
		ErrorDetail(ctx, iris.StatusBadRequest, "Validation Error", "request body failed validation", detail)
		return
	}

	Error(ctx, iris.StatusBadRequest, "Bad Request", err.Error())
}

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
	Total   int64 `json:"total"`
}

func JSONPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	ctx.JSON(iris.Map{
		"success": true,
		"data":    data,
		"meta":    PageMeta{Page: page, PerPage: perPage, Total: total},
	})
}

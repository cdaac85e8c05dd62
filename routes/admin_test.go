package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentloop-server/utils"
)

func buildAdminTestApp(t *testing.T, db *gorm.DB) *iris.Application {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", testSecret)

	log := logrus.New()
	handler := NewAdminHandler(db, nil, log)

	app := iris.New()
	app.Validator = validator.New()

	verifier := jwt.NewVerifier(jwt.HS256, []byte(testSecret))
	verifyMiddleware := verifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	admin := app.Party("/api/admin", verifyMiddleware, utils.AdminOnlyMiddleware)
	admin.Get("/users", handler.ListUsers)

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	db, _ := mockDB(t)
	app := buildAdminTestApp(t, db)

	w := doJSON(app, "GET", "/api/admin/users", signTestToken(t, 2, "user"), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminRoutesRejectAnonymous(t *testing.T) {
	db, _ := mockDB(t)
	app := buildAdminTestApp(t, db)

	w := doJSON(app, "GET", "/api/admin/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", w.Code)
	}
}

func TestAdminListUsers(t *testing.T) {
	db, mock := mockDB(t)
	app := buildAdminTestApp(t, db)

	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "role"}).
			AddRow(1, "Ada", "Lovelace", "ada@example.com", "user"))

	w := doJSON(app, "GET", "/api/admin/users", signTestToken(t, 1, "admin"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an admin, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Meta    struct {
			Page    int   `json:"page"`
			PerPage int   `json:"perPage"`
			Total   int64 `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if envelope.Meta.Page != 1 || envelope.Meta.PerPage != 50 || envelope.Meta.Total != 1 {
		t.Fatalf("unexpected page meta: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

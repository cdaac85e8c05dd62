package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentloop-server/services"
	"rentloop-server/utils"
)

const testSecret = "sercrethatmaycontainch@r32length"

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db, mock
}

func buildBookingTestApp(t *testing.T, db *gorm.DB) *iris.Application {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", testSecret)

	log := logrus.New()
	log.SetOutput(io.Discard)

	events := services.NewEmitter(16, func(services.Event) {}, log)
	t.Cleanup(events.Close)

	handler := NewBookingHandler(db, services.NewBookingService(db), events, log)

	app := iris.New()
	app.Validator = validator.New()

	verifier := jwt.NewVerifier(jwt.HS256, []byte(testSecret))
	verifyMiddleware := verifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	bookings := app.Party("/api/bookings", verifyMiddleware)
	bookings.Post("/", handler.CreateBooking)
	bookings.Get("/{id:uint}", handler.GetBooking)
	bookings.Put("/{id:uint}", handler.UpdateBooking)

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

func signTestToken(t *testing.T, id uint, role string) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, testSecret, time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: id, Role: role})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(token)
}

func doJSON(app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func listingRows(id, ownerID uint, pricePerDay float64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "title", "price_per_day", "currency", "status"}).
		AddRow(id, ownerID, "Cordless Drill", pricePerDay, "USD", status)
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	db, _ := mockDB(t)
	app := buildBookingTestApp(t, db)

	w := doJSON(app, "POST", "/api/bookings", "", map[string]interface{}{})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateBookingListingNotFound(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := doJSON(app, "POST", "/api/bookings", signTestToken(t, 2, "user"), map[string]interface{}{
		"listingID":  1,
		"startDate":  "2024-01-01",
		"endDate":    "2024-01-04",
		"totalPrice": 60.0,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateBookingOwnListing(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 2, 20, "active"))

	w := doJSON(app, "POST", "/api/bookings", signTestToken(t, 2, "user"), map[string]interface{}{
		"listingID":  1,
		"startDate":  "2024-01-01",
		"endDate":    "2024-01-04",
		"totalPrice": 60.0,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateBookingDateConflict(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := doJSON(app, "POST", "/api/bookings", signTestToken(t, 2, "user"), map[string]interface{}{
		"listingID":  1,
		"startDate":  "2024-02-14",
		"endDate":    "2024-02-20",
		"totalPrice": 140.0,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if envelope.Success || envelope.Error != "Conflict" {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingPriceMismatch(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	w := doJSON(app, "POST", "/api/bookings", signTestToken(t, 2, "user"), map[string]interface{}{
		"listingID":  1,
		"startDate":  "2024-01-01",
		"endDate":    "2024-01-04",
		"totalPrice": 61.50,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Detail  struct {
			Days     int     `json:"days"`
			PerDay   float64 `json:"pricePerDay"`
			Expected float64 `json:"expectedTotal"`
			Supplied float64 `json:"suppliedTotal"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	d := envelope.Detail
	if d.Days != 3 || d.PerDay != 20 || d.Expected != 60 || d.Supplied != 61.50 {
		t.Fatalf("detail should carry the price breakdown: %s", w.Body.String())
	}
}

func TestCreateBookingInactiveListing(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "archived"))

	w := doJSON(app, "POST", "/api/bookings", signTestToken(t, 2, "user"), map[string]interface{}{
		"listingID":  1,
		"startDate":  "2024-01-01",
		"endDate":    "2024-01-04",
		"totalPrice": 60.0,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))
	mock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	w := doJSON(app, "POST", "/api/bookings", signTestToken(t, 2, "user"), map[string]interface{}{
		"listingID":  1,
		"startDate":  "2024-01-01",
		"endDate":    "2024-01-04",
		"totalPrice": 60.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !envelope.Success || envelope.Data.Status != services.BookingStatusPending {
		t.Fatalf("new booking should be pending: %s", w.Body.String())
	}
	if envelope.Data.ID != 7 {
		t.Fatalf("expected id 7, got %d", envelope.Data.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func bookingRowsWithStatus(status string) *sqlmock.Rows {
	cols := []string{"id", "listing_id", "renter_id", "owner_id", "start_date", "end_date", "total_price", "status"}
	return sqlmock.NewRows(cols).
		AddRow(5, 1, 2, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), 60.0, status)
}

func TestUpdateBookingDateEditOwnerForbidden(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(bookingRowsWithStatus("pending"))
	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))

	w := doJSON(app, "PUT", "/api/bookings/5", signTestToken(t, 1, "user"), map[string]interface{}{
		"startDate": "2024-03-01",
		"endDate":   "2024-03-06",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("owner date edit should be 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateBookingDateEditNotPending(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(bookingRowsWithStatus("confirmed"))
	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))

	w := doJSON(app, "PUT", "/api/bookings/5", signTestToken(t, 2, "user"), map[string]interface{}{
		"startDate": "2024-03-01",
		"endDate":   "2024-03-06",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("date edit on a confirmed booking should be 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateBookingDateEditRecomputesTotal(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(bookingRowsWithStatus("pending"))
	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))
	// The conflict recheck must skip the booking being edited.
	mock.ExpectQuery(`SELECT count(.+)id <>`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(app, "PUT", "/api/bookings/5", signTestToken(t, 2, "user"), map[string]interface{}{
		"startDate": "2024-03-01",
		"endDate":   "2024-03-06",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			StartDate  string  `json:"startDate"`
			EndDate    string  `json:"endDate"`
			TotalPrice float64 `json:"totalPrice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if envelope.Data.StartDate != "2024-03-01" || envelope.Data.EndDate != "2024-03-06" {
		t.Fatalf("dates not applied: %s", w.Body.String())
	}
	// 5 days at 20/day replaces the old total.
	if envelope.Data.TotalPrice != 100 {
		t.Fatalf("expected recomputed total 100, got %v", envelope.Data.TotalPrice)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateBookingTotalWithoutDates(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(bookingRowsWithStatus("pending"))
	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 1, 20, "active"))

	w := doJSON(app, "PUT", "/api/bookings/5", signTestToken(t, 2, "user"), map[string]interface{}{
		"totalPrice": 45.0,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("totalPrice without a date change should be 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetBookingStranger(t *testing.T) {
	db, mock := mockDB(t)
	app := buildBookingTestApp(t, db)

	bookingCols := []string{"id", "listing_id", "renter_id", "owner_id", "start_date", "end_date", "total_price", "status"}
	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(5, 1, 2, 3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), 60.0, "pending"))
	mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRows(1, 3, 20, "active"))

	w := doJSON(app, "GET", "/api/bookings/5", signTestToken(t, 9, "user"), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-party caller, got %d: %s", w.Code, w.Body.String())
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anjoman/internal/auth"
	"anjoman/internal/database"
	"anjoman/internal/models"
	"anjoman/internal/repository"
	"anjoman/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := repository.NewRepositories(&database.DB{DB: db})
	manager := auth.NewManager(auth.Config{JWTSecret: "test-secret", AccessTokenTTL: 15 * time.Minute})
	services := service.NewServices(repos, manager, nil, nil, nil)
	h := New(services, "http://localhost:3000/payments/result")

	asUser := func(userID int64) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		}
	}

	r := gin.New()
	r.POST("/api/events/:id/register", asUser(12), h.Register)
	return r, mock
}

var eventCols = []string{
	"id", "title", "slug", "description", "status", "price", "capacity",
	"registration_start_at", "registration_end_at", "start_time", "end_time",
	"created_at", "updated_at",
}

func freeEventRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(eventCols).
		AddRow(7, "Go Meetup", "go-meetup", "monthly meetup", models.EventStatusPublished,
			0, nil, nil, nil, now.Add(24*time.Hour), now.Add(26*time.Hour), now, now)
}

func TestRegisterReturns201WithTicket(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(freeEventRow())
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").
		WillReturnRows(sqlmock.NewRows([]string{"status", "price", "capacity", "registration_start_at", "registration_end_at"}).
			AddRow(models.EventStatusPublished, 0, nil, nil, nil))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO registrations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registered_at", "updated_at"}).AddRow(41, now, now))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/api/events/7/register", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.RegistrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RegistrationStatusConfirmed, resp.Status)
	assert.NotEmpty(t, resp.TicketID)
}

func TestRegisterCapacityExceededReturns409(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, title, slug").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(7, "Go Meetup", "go-meetup", "monthly meetup", models.EventStatusPublished,
				50000, 1, nil, nil, now.Add(24*time.Hour), now.Add(26*time.Hour), now, now))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").
		WillReturnRows(sqlmock.NewRows([]string{"status", "price", "capacity", "registration_start_at", "registration_end_at"}).
			AddRow(models.EventStatusPublished, 50000, 1, nil, nil))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPost, "/api/events/7/register", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterClosedWindowReturns403(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()
	closed := now.Add(-time.Hour)

	mock.ExpectQuery("SELECT id, title, slug").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(7, "Go Meetup", "go-meetup", "monthly meetup", models.EventStatusPublished,
				50000, nil, nil, closed, now.Add(24*time.Hour), now.Add(26*time.Hour), now, now))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").
		WillReturnRows(sqlmock.NewRows([]string{"status", "price", "capacity", "registration_start_at", "registration_end_at"}).
			AddRow(models.EventStatusPublished, 50000, nil, nil, closed))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPost, "/api/events/7/register", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterInvalidEventIDReturns400(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/events/abc/register", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"farm-marketplace/config"
)

func newAuthRouter(db *sql.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctl := &AuthController{
		DB:     db,
		Cfg:    &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Logger: zap.NewNop().Sugar(),
	}

	r := gin.New()
	r.POST("/api/accounts/register", ctl.Register)
	r.POST("/api/accounts/token", ctl.Login)
	r.GET("/api/accounts/me", asUser(5), ctl.Me)
	return r
}

func TestRegister(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("newuser", "new@example.com", sqlmock.AnyArg(), "", "").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO profiles").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	body, _ := json.Marshal(map[string]string{
		"username":  "newuser",
		"email":     "new@example.com",
		"password":  "supersecret1",
		"password2": "supersecret1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Access   string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.ID)
	assert.Equal(t, "newuser", resp.Username)
	assert.NotEmpty(t, resp.Access)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterPasswordMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	body, _ := json.Marshal(map[string]string{
		"username":  "newuser",
		"email":     "new@example.com",
		"password":  "supersecret1",
		"password2": "different12",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Password fields didn't match.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&duplicateEntryError{})
	mock.ExpectRollback()

	body, _ := json.Marshal(map[string]string{
		"username":  "taken",
		"email":     "taken@example.com",
		"password":  "supersecret1",
		"password2": "supersecret1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type duplicateEntryError struct{}

func (duplicateEntryError) Error() string {
	return "Error 1062 (23000): Duplicate entry 'taken' for key 'users.username'"
}

func TestLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret1"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, password_hash FROM users WHERE username").
		WithArgs("buyer1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(5, string(hash)))

	body, _ := json.Marshal(map[string]string{"username": "buyer1", "password": "supersecret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret1"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, password_hash FROM users WHERE username").
		WithArgs("buyer1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(5, string(hash)))

	body, _ := json.Marshal(map[string]string{"username": "buyer1", "password": "wrongpass1"})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "No active account found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, password_hash FROM users WHERE username").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	body, _ := json.Marshal(map[string]string{"username": "ghost", "password": "whatever12"})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMe(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM users u LEFT JOIN profiles p").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "is_producer"}).
			AddRow(5, "buyer1", "buyer1@example.com", "Taro", "Yamada", false))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/me", nil)
	w := httptest.NewRecorder()
	newAuthRouter(db).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "buyer1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farm-marketplace/models"
)

const producerOrderID = "b5e1f2a3-0000-0000-0000-000000000010"

func newProducerRouter(db *sql.DB, notifier *fakeNotifier, producerID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctl := &ProducerOrderController{DB: db, Notifier: notifier, Logger: zap.NewNop().Sugar()}

	r := gin.New()
	g := r.Group("/api/producer-orders", asUser(producerID))
	g.GET("", ctl.ListOrders)
	g.GET("/:order_id", ctl.GetOrder)
	g.PATCH("/:order_id", ctl.UpdateOrderStatus)
	g.POST("/:order_id/mark-shipped", ctl.MarkShipped)
	return r
}

func expectOwnership(mock sqlmock.Sqlmock, orderID, producerID int64, owns bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(orderID, producerID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(owns))
}

func statusBody(t *testing.T, status string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]string{"order_status": status})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestUpdateOrderStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	expectOwnership(mock, 30, 5, true)
	mock.ExpectExec("UPDATE orders SET order_status").
		WithArgs("processing", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders o LEFT JOIN users u").
		WithArgs(int64(30)).
		WillReturnRows(orderRow(30, producerOrderID, 7, 2200, "processing"))
	mock.ExpectQuery("FROM order_items oi").
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).
			AddRow(1, 30, 3, "Fresh Tomatoes", 1100, 2))

	notifier := &fakeNotifier{}
	router := newProducerRouter(db, notifier, 5)

	req := httptest.NewRequest(http.MethodPatch, "/api/producer-orders/"+producerOrderID, statusBody(t, "processing"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "processing", order.OrderStatus)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "status_updated", notifier.events[0].Type)
	assert.Equal(t, "processing", notifier.events[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusInvalidValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	expectOwnership(mock, 30, 5, true)

	router := newProducerRouter(db, &fakeNotifier{}, 5)

	req := httptest.NewRequest(http.MethodPatch, "/api/producer-orders/"+producerOrderID, statusBody(t, "delivered"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid status value")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusMissingField(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	expectOwnership(mock, 30, 5, true)

	router := newProducerRouter(db, &fakeNotifier{}, 5)

	req := httptest.NewRequest(http.MethodPatch, "/api/producer-orders/"+producerOrderID, bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "order_status is required.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusForbiddenForOtherProducer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	expectOwnership(mock, 30, 9, false)

	notifier := &fakeNotifier{}
	router := newProducerRouter(db, notifier, 9)

	req := httptest.NewRequest(http.MethodPatch, "/api/producer-orders/"+producerOrderID, statusBody(t, "processing"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, notifier.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnError(sql.ErrNoRows)

	router := newProducerRouter(db, &fakeNotifier{}, 5)

	req := httptest.NewRequest(http.MethodPatch, "/api/producer-orders/"+producerOrderID, statusBody(t, "processing"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkShipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, order_status FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_status"}).AddRow(30, "processing"))
	expectOwnership(mock, 30, 5, true)
	mock.ExpectExec("UPDATE orders SET order_status").
		WithArgs("shipped", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders o LEFT JOIN users u").
		WithArgs(int64(30)).
		WillReturnRows(orderRow(30, producerOrderID, 7, 2200, "shipped"))
	mock.ExpectQuery("FROM order_items oi").
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).
			AddRow(1, 30, 3, "Fresh Tomatoes", 1100, 2))
	mock.ExpectQuery("SELECT u.username, u.email").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}).
			AddRow("buyer1", "buyer1@example.com"))

	notifier := &fakeNotifier{}
	router := newProducerRouter(db, notifier, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/producer-orders/"+producerOrderID+"/mark-shipped", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, models.OrderStatusShipped, order.OrderStatus)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, producerOrderID, notifier.notices[0].OrderID)
	assert.Equal(t, "buyer1@example.com", notifier.notices[0].BuyerEmail)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkShippedAlreadyShipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, order_status FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_status"}).AddRow(30, "shipped"))
	expectOwnership(mock, 30, 5, true)

	notifier := &fakeNotifier{}
	router := newProducerRouter(db, notifier, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/producer-orders/"+producerOrderID+"/mark-shipped", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already been shipped")
	assert.Empty(t, notifier.notices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkShippedTerminalStates(t *testing.T) {
	for _, status := range []string{"completed", "cancelled", "refunded"} {
		t.Run(status, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery("SELECT id, order_status FROM orders WHERE order_id").
				WithArgs(producerOrderID).
				WillReturnRows(sqlmock.NewRows([]string{"id", "order_status"}).AddRow(30, status))
			expectOwnership(mock, 30, 5, true)

			router := newProducerRouter(db, &fakeNotifier{}, 5)

			req := httptest.NewRequest(http.MethodPost, "/api/producer-orders/"+producerOrderID+"/mark-shipped", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "terminal state")
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkShippedNotificationFailureDoesNotFailRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, order_status FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_status"}).AddRow(30, "pending"))
	expectOwnership(mock, 30, 5, true)
	mock.ExpectExec("UPDATE orders SET order_status").
		WithArgs("shipped", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders o LEFT JOIN users u").
		WithArgs(int64(30)).
		WillReturnRows(orderRow(30, producerOrderID, 7, 2200, "shipped"))
	mock.ExpectQuery("FROM order_items oi").
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).
			AddRow(1, 30, 3, "Fresh Tomatoes", 1100, 2))
	mock.ExpectQuery("SELECT u.username, u.email").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}).
			AddRow("buyer1", "buyer1@example.com"))

	notifier := &fakeNotifier{err: errors.New("broker unavailable")}
	router := newProducerRouter(db, notifier, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/producer-orders/"+producerOrderID+"/mark-shipped", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkShippedSkipsNoticeWhenBuyerDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, order_status FROM orders WHERE order_id").
		WithArgs(producerOrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_status"}).AddRow(30, "pending"))
	expectOwnership(mock, 30, 5, true)
	mock.ExpectExec("UPDATE orders SET order_status").
		WithArgs("shipped", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders o LEFT JOIN users u").
		WithArgs(int64(30)).
		WillReturnRows(orderRow(30, producerOrderID, 7, 2200, "shipped"))
	mock.ExpectQuery("FROM order_items oi").
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).
			AddRow(1, 30, 3, "Fresh Tomatoes", 1100, 2))
	mock.ExpectQuery("SELECT u.username, u.email").
		WithArgs(producerOrderID).
		WillReturnError(sql.ErrNoRows)

	notifier := &fakeNotifier{}
	router := newProducerRouter(db, notifier, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/producer-orders/"+producerOrderID+"/mark-shipped", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, notifier.notices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProducerListOrdersInvalidStatusFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	router := newProducerRouter(db, &fakeNotifier{}, 5)

	req := httptest.NewRequest(http.MethodGet, "/api/producer-orders?order_status=bogus", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid status value")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProducerListOrdersWithStatusFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(5), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM orders o LEFT JOIN users u").
		WithArgs(int64(5), "pending", 10, 0).
		WillReturnRows(orderRow(30, producerOrderID, 7, 2200, "pending"))
	mock.ExpectQuery("FROM order_items oi").
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).
			AddRow(1, 30, 3, "Fresh Tomatoes", 1100, 2))

	router := newProducerRouter(db, &fakeNotifier{}, 5)

	req := httptest.NewRequest(http.MethodGet, "/api/producer-orders?order_status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int            `json:"count"`
		Results []models.Order `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Results, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

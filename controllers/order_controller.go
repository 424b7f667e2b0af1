package controllers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"farm-marketplace/middlewares"
	"farm-marketplace/models"
	"farm-marketplace/rabbitmq"
)

type OrderController struct {
	DB       *sql.DB
	Notifier rabbitmq.Notifier
	Logger   *zap.SugaredLogger
}

// CreateOrder turns the request into a durable order inside one database
// transaction: order row, guarded stock decrements, item snapshots, total.
// Any failure rolls the whole thing back.
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("create", ok)
	}()

	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	tx, err := ctl.DB.Begin()
	if err != nil {
		ctl.Logger.Errorw("failed to start transaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not start transaction"})
		return
	}

	publicID := uuid.New().String()

	orderResult, err := tx.Exec(`
		INSERT INTO orders (order_id, user_id,
		                    shipping_full_name, shipping_postal_code, shipping_prefecture, shipping_city,
		                    shipping_address1, shipping_address2, shipping_phone_number,
		                    total_amount, payment_method, payment_status, order_status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, 'pending', 'pending', ?)
	`, publicID, userID,
		req.ShippingFullName, req.ShippingPostalCode, req.ShippingPrefecture, req.ShippingCity,
		req.ShippingAddress1, req.ShippingAddress2, req.ShippingPhoneNumber,
		req.PaymentMethod, req.Notes,
	)
	if err != nil {
		tx.Rollback()
		ctl.Logger.Errorw("failed to create order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create order"})
		return
	}

	orderID, err := orderResult.LastInsertId()
	if err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to get order ID"})
		return
	}

	var total int64
	for _, line := range req.Items {
		var (
			name  string
			price int64
			stock int
		)
		err := tx.QueryRow(`
			SELECT name, price, quantity
			FROM products
			WHERE id = ? AND status = 'active'
			FOR UPDATE
		`, line.ProductID).Scan(&name, &price, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{
				"items": fmt.Sprintf("product %d is not available for purchase", line.ProductID),
			})
			return
		}
		if err != nil {
			tx.Rollback()
			ctl.Logger.Errorw("failed to load product", "product_id", line.ProductID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}

		if stock < line.Quantity {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{
				"items": fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
					line.ProductID, name, line.Quantity, stock),
			})
			return
		}

		// Check-and-decrement in one statement so concurrent orders cannot
		// both take the last unit.
		decResult, err := tx.Exec(`
			UPDATE products
			SET quantity = quantity - ?
			WHERE id = ? AND status = 'active' AND quantity >= ?
		`, line.Quantity, line.ProductID, line.Quantity)
		if err != nil {
			tx.Rollback()
			ctl.Logger.Errorw("failed to decrement stock", "product_id", line.ProductID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
		if affected, _ := decResult.RowsAffected(); affected == 0 {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{
				"items": fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
					line.ProductID, name, line.Quantity, stock),
			})
			return
		}

		if _, err := tx.Exec(`
			INSERT INTO order_items (order_id, product_id, product_name, price_at_purchase, quantity)
			VALUES (?, ?, ?, ?, ?)
		`, orderID, line.ProductID, name, price, line.Quantity); err != nil {
			tx.Rollback()
			ctl.Logger.Errorw("failed to add order item", "product_id", line.ProductID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to add order item"})
			return
		}

		total += price * int64(line.Quantity)
	}

	if _, err := tx.Exec(`UPDATE orders SET total_amount = ? WHERE id = ?`, total, orderID); err != nil {
		tx.Rollback()
		ctl.Logger.Errorw("failed to set order total", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to finalize order"})
		return
	}

	if err := tx.Commit(); err != nil {
		ctl.Logger.Errorw("transaction commit failed", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Transaction commit failed"})
		return
	}

	order, err := fetchOrder(ctl.DB, "o.order_id = ?", publicID)
	if err != nil {
		ctl.Logger.Errorw("failed to load created order", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, order)

	// The event goes out strictly after the commit, best effort.
	if ctl.Notifier != nil {
		err := ctl.Notifier.PublishOrderEvent(models.OrderEvent{
			OrderID:  publicID,
			Type:     "created",
			Status:   models.OrderStatusPending,
			Total:    total,
			Occurred: time.Now(),
		})
		middlewares.RecordNotification("order_event", err == nil)
		if err != nil {
			ctl.Logger.Errorw("failed to publish order created event", "order_id", publicID, "error", err)
		}
	}
}

// ListOrders returns the requesting buyer's own orders.
func (ctl *OrderController) ListOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list", ok)
	}()

	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	p := parsePageParams(c, 10)
	orderBy := orderClause(c.Query("ordering"), orderOrderings, "o.created_at DESC")

	orders, count, err := listOrders(ctl.DB, "o.user_id = ?", orderBy, p, userID)
	if err != nil {
		ctl.Logger.Errorw("failed to list orders", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, pagedResponse{
		Count:    count,
		Page:     p.Page,
		PageSize: p.PageSize,
		Results:  orders,
	})
}

// GetOrder returns one of the buyer's own orders by its public id.
func (ctl *OrderController) GetOrder(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("details", ok)
	}()

	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	order, err := fetchOrder(ctl.DB, "o.order_id = ? AND o.user_id = ?", c.Param("order_id"), userID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load order", "order_id", c.Param("order_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// MethodNotAllowed rejects mutations of placed orders: they are append-only
// from the buyer's perspective.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method not allowed."})
}

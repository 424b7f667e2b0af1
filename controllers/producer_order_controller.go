package controllers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-marketplace/middlewares"
	"farm-marketplace/models"
	"farm-marketplace/rabbitmq"
)

type ProducerOrderController struct {
	DB       *sql.DB
	Notifier rabbitmq.Notifier
	Logger   *zap.SugaredLogger
}

// ListOrders returns orders containing at least one of the producer's
// products. An order mixing several sellers shows up in each seller's
// list, but only once per list.
func (ctl *ProducerOrderController) ListOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("producer_list", ok)
	}()

	producerID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	where := producerOrderScope
	args := []interface{}{producerID}

	if v := c.Query("order_status"); v != "" {
		if !models.IsValidOrderStatus(v) {
			c.JSON(http.StatusBadRequest, gin.H{"order_status": "invalid status value"})
			return
		}
		where += " AND o.order_status = ?"
		args = append(args, v)
	}
	if v := c.Query("payment_status"); v != "" {
		where += " AND o.payment_status = ?"
		args = append(args, v)
	}

	p := parsePageParams(c, 10)
	orderBy := orderClause(c.Query("ordering"), orderOrderings, "o.created_at DESC")

	orders, count, err := listOrders(ctl.DB, where, orderBy, p, args...)
	if err != nil {
		ctl.Logger.Errorw("failed to list producer orders", "producer_id", producerID, "error", err)
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

// GetOrder returns a single received order, scoped to the producer.
func (ctl *ProducerOrderController) GetOrder(c *gin.Context) {
	producerID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	order, err := fetchOrder(ctl.DB, "o.order_id = ? AND "+producerOrderScope, c.Param("order_id"), producerID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load producer order", "order_id", c.Param("order_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus is the producer's generic status update. Any member of
// the enumeration is accepted; only ownership and the enum are checked.
func (ctl *ProducerOrderController) UpdateOrderStatus(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("update_status", ok)
	}()

	producerID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	publicID := c.Param("order_id")
	var internalID int64
	err := ctl.DB.QueryRow(`SELECT id FROM orders WHERE order_id = ?`, publicID).Scan(&internalID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load order", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	owns, err := producerOwnsOrder(ctl.DB, internalID, producerID)
	if err != nil {
		ctl.Logger.Errorw("ownership check failed", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	if !owns {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to manage this order."})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "order_status is required."})
		return
	}
	if !models.IsValidOrderStatus(req.OrderStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"order_status": "invalid status value"})
		return
	}

	if _, err := ctl.DB.Exec(`
		UPDATE orders SET order_status = ?, updated_at = NOW() WHERE id = ?
	`, req.OrderStatus, internalID); err != nil {
		ctl.Logger.Errorw("failed to update order status", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	order, err := fetchOrder(ctl.DB, "o.id = ?", internalID)
	if err != nil {
		ctl.Logger.Errorw("failed to reload order", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, order)

	if ctl.Notifier != nil {
		err := ctl.Notifier.PublishOrderEvent(models.OrderEvent{
			OrderID:  publicID,
			Type:     "status_updated",
			Status:   req.OrderStatus,
			Total:    order.TotalAmount,
			Occurred: time.Now(),
		})
		middlewares.RecordNotification("order_event", err == nil)
		if err != nil {
			ctl.Logger.Errorw("failed to publish status updated event", "order_id", publicID, "error", err)
		}
	}
}

// MarkShipped moves the order to shipped and queues the buyer notification.
// The notification is best effort: its failure never undoes the committed
// status change and never fails the response.
func (ctl *ProducerOrderController) MarkShipped(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("mark_shipped", ok)
	}()

	producerID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	publicID := c.Param("order_id")
	var (
		internalID    int64
		currentStatus string
	)
	err := ctl.DB.QueryRow(`
		SELECT id, order_status FROM orders WHERE order_id = ?
	`, publicID).Scan(&internalID, &currentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load order", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	owns, err := producerOwnsOrder(ctl.DB, internalID, producerID)
	if err != nil {
		ctl.Logger.Errorw("ownership check failed", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	if !owns {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to manage this order."})
		return
	}

	if currentStatus == models.OrderStatusShipped {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "This order has already been shipped."})
		return
	}
	if !models.CanMarkShipped(currentStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Orders in a terminal state cannot be shipped."})
		return
	}

	if _, err := ctl.DB.Exec(`
		UPDATE orders SET order_status = ?, updated_at = NOW() WHERE id = ?
	`, models.OrderStatusShipped, internalID); err != nil {
		ctl.Logger.Errorw("failed to mark order shipped", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	order, err := fetchOrder(ctl.DB, "o.id = ?", internalID)
	if err != nil {
		ctl.Logger.Errorw("failed to reload order", "order_id", publicID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, order)

	ctl.notifyShipment(order)
}

func (ctl *ProducerOrderController) notifyShipment(order models.Order) {
	if ctl.Notifier == nil {
		return
	}

	// Only attempted when the buyer still exists and has an address on
	// file; a deleted account simply gets no notice.
	var username, email string
	err := ctl.DB.QueryRow(`
		SELECT u.username, u.email
		FROM users u
		JOIN orders o ON o.user_id = u.id
		WHERE o.order_id = ?
	`, order.OrderID).Scan(&username, &email)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && email == "") {
		ctl.Logger.Infow("no deliverable buyer address, skipping shipment notice", "order_id", order.OrderID)
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load buyer contact", "order_id", order.OrderID, "error", err)
		return
	}

	err = ctl.Notifier.PublishShipmentNotice(models.ShipmentNotice{
		OrderID:          order.OrderID,
		BuyerEmail:       email,
		BuyerUsername:    username,
		ShippingFullName: order.ShippingFullName,
		Occurred:         time.Now(),
	})
	middlewares.RecordNotification("shipment_notice", err == nil)
	if err != nil {
		ctl.Logger.Errorw("failed to publish shipment notice", "order_id", order.OrderID, "error", err)
	}
}

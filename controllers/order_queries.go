package controllers

import (
	"database/sql"
	"fmt"
	"strings"

	"farm-marketplace/models"
)

const orderColumns = `o.id, o.order_id, o.user_id, u.username,
       o.shipping_full_name, o.shipping_postal_code, o.shipping_prefecture, o.shipping_city,
       o.shipping_address1, o.shipping_address2, o.shipping_phone_number,
       o.total_amount, o.payment_method, o.payment_status, o.order_status,
       COALESCE(o.notes, ''), o.created_at, o.updated_at`

var orderOrderings = map[string]string{
	"created_at":   "o.created_at",
	"total_amount": "o.total_amount",
	"order_status": "o.order_status",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.OrderID, &o.UserID, &o.UserUsername,
		&o.ShippingFullName, &o.ShippingPostalCode, &o.ShippingPrefecture, &o.ShippingCity,
		&o.ShippingAddress1, &o.ShippingAddress2, &o.ShippingPhoneNumber,
		&o.TotalAmount, &o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}
	o.Items = []models.OrderItem{}
	return o, nil
}

// fetchOrder loads a single order plus its items. The where clause scopes
// visibility; callers translate sql.ErrNoRows to 404.
func fetchOrder(db *sql.DB, where string, args ...interface{}) (models.Order, error) {
	row := db.QueryRow(fmt.Sprintf(`
		SELECT %s
		FROM orders o
		LEFT JOIN users u ON o.user_id = u.id
		WHERE %s
	`, orderColumns, where), args...)

	order, err := scanOrder(row)
	if err != nil {
		return models.Order{}, err
	}

	orders := []models.Order{order}
	if err := loadOrderItems(db, orders); err != nil {
		return models.Order{}, err
	}
	return orders[0], nil
}

// listOrders returns one page of orders matching the scope, with items
// attached, plus the total count for the scope.
func listOrders(db *sql.DB, where, orderBy string, p pageParams, args ...interface{}) ([]models.Order, int, error) {
	var count int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders o WHERE %s`, where)
	if err := db.QueryRow(countQuery, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		LEFT JOIN users u ON o.user_id = u.id
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, orderColumns, where, orderBy)

	queryArgs := append(append([]interface{}{}, args...), p.PageSize, p.Offset())
	rows, err := db.Query(query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := loadOrderItems(db, orders); err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func loadOrderItems(db *sql.DB, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]interface{}, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
		ids = append(ids, orders[i].ID)
		placeholders = append(placeholders, "?")
	}

	rows, err := db.Query(fmt.Sprintf(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.product_name, oi.price_at_purchase, oi.quantity
		FROM order_items oi
		WHERE oi.order_id IN (%s)
		ORDER BY oi.id ASC
	`, strings.Join(placeholders, ",")), ids...)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    models.OrderItem
			orderID int64
		)
		if err := rows.Scan(&item.ID, &orderID, &item.ProductID, &item.ProductName, &item.PriceAtPurchase, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Subtotal = item.PriceAtPurchase * int64(item.Quantity)
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return rows.Err()
}

// producerOwnsOrder reports whether the producer owns at least one item in
// the order. This is the object-level authorization check; the list scope
// applies the same rule.
func producerOwnsOrder(db *sql.DB, orderID, producerID int64) (bool, error) {
	var owns bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN products p ON oi.product_id = p.id
			WHERE oi.order_id = ? AND p.producer_id = ?
		)
	`, orderID, producerID).Scan(&owns)
	if err != nil {
		return false, err
	}
	return owns, nil
}

const producerOrderScope = `EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN products p ON oi.product_id = p.id
			WHERE oi.order_id = o.id AND p.producer_id = ?
		)`

package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpOrdersTable, DownOrdersTable)
}

func UpOrdersTable(ctx context.Context, tx *sql.Tx) error {
	// user_id is nullable: an order must survive buyer account deletion.
	_, err := tx.ExecContext(ctx, `CREATE TABLE orders
(
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    order_id CHAR(36) NOT NULL UNIQUE,
    user_id BIGINT NULL,
    shipping_full_name VARCHAR(100) NOT NULL,
    shipping_postal_code VARCHAR(10) NOT NULL,
    shipping_prefecture VARCHAR(50) NOT NULL,
    shipping_city VARCHAR(100) NOT NULL,
    shipping_address1 VARCHAR(255) NOT NULL,
    shipping_address2 VARCHAR(255) NOT NULL DEFAULT '',
    shipping_phone_number VARCHAR(20) NOT NULL,
    total_amount BIGINT NOT NULL DEFAULT 0,
    payment_method ENUM ('credit_card', 'bank_transfer') NOT NULL,
    payment_status ENUM ('pending', 'paid', 'failed', 'refunded') NOT NULL DEFAULT 'pending',
    order_status ENUM ('pending', 'processing', 'shipped', 'completed', 'cancelled', 'refunded') NOT NULL DEFAULT 'pending',
    notes TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_orders_user (user_id),
    INDEX idx_orders_created (created_at),
    CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE SET NULL
);`)
	return err
}

func DownOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE orders;")
	return err
}

package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpProductsTable, DownProductsTable)
}

func UpProductsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE products
(
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    producer_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    category VARCHAR(100) NOT NULL DEFAULT '',
    price BIGINT NOT NULL,
    quantity INT NOT NULL DEFAULT 0,
    unit VARCHAR(20) NOT NULL DEFAULT 'ko',
    cultivation_method VARCHAR(50) NOT NULL DEFAULT '',
    standard VARCHAR(100) NOT NULL DEFAULT '',
    storage_method VARCHAR(255) NOT NULL DEFAULT '',
    image_url VARCHAR(255) NOT NULL DEFAULT '',
    status ENUM ('draft', 'pending', 'active', 'inactive') NOT NULL DEFAULT 'draft',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_products_status (status),
    INDEX idx_products_producer (producer_id),
    CONSTRAINT fk_products_producer FOREIGN KEY (producer_id) REFERENCES users (id) ON DELETE CASCADE
);`)
	return err
}

func DownProductsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE products;")
	return err
}

package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpOrderItemsTable, DownOrderItemsTable)
}

func UpOrderItemsTable(ctx context.Context, tx *sql.Tx) error {
	// product_name and price_at_purchase are snapshots taken at order time;
	// product_id is nullable so the history survives product deletion.
	_, err := tx.ExecContext(ctx, `CREATE TABLE order_items
(
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    order_id BIGINT NOT NULL,
    product_id BIGINT NULL,
    product_name VARCHAR(255) NOT NULL,
    price_at_purchase BIGINT NOT NULL,
    quantity INT NOT NULL,
    INDEX idx_order_items_order (order_id),
    INDEX idx_order_items_product (product_id),
    CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE,
    CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE SET NULL
);`)
	return err
}

func DownOrderItemsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE order_items;")
	return err
}

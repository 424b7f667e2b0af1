package controllers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-marketplace/cache"
	"farm-marketplace/middlewares"
	"farm-marketplace/models"
)

type ProductController struct {
	DB     *sql.DB
	Cache  *cache.ProductCache
	Logger *zap.SugaredLogger
}

const productColumns = `pr.id, pr.producer_id, u.username, pr.name, COALESCE(pr.description, ''),
       pr.category, pr.price, pr.quantity, pr.unit, pr.cultivation_method,
       pr.standard, pr.storage_method, pr.image_url, pr.status, pr.created_at, pr.updated_at`

var productOrderings = map[string]string{
	"price":      "pr.price",
	"created_at": "pr.created_at",
	"updated_at": "pr.updated_at",
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.ProducerID, &p.ProducerUsername, &p.Name, &p.Description,
		&p.Category, &p.Price, &p.Quantity, &p.Unit, &p.CultivationMethod,
		&p.Standard, &p.StorageMethod, &p.ImageURL, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// ListProducts is the public catalog. Only active products are visible
// unless the owner asks for their own listing with owner=me.
func (ctl *ProductController) ListProducts(c *gin.Context) {
	where := "pr.status = 'active'"
	args := []interface{}{}

	if c.Query("owner") == "me" {
		userID, exists := middlewares.CurrentUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
			return
		}
		where = "pr.producer_id = ?"
		args = append(args, userID)
	}

	if v := c.Query("category"); v != "" {
		where += " AND pr.category = ?"
		args = append(args, v)
	}
	if v := c.Query("min_price"); v != "" {
		minPrice, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"min_price": "must be a number"})
			return
		}
		where += " AND pr.price >= ?"
		args = append(args, minPrice)
	}
	if v := c.Query("max_price"); v != "" {
		maxPrice, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"max_price": "must be a number"})
			return
		}
		where += " AND pr.price <= ?"
		args = append(args, maxPrice)
	}
	if v := c.Query("cultivation_method"); v != "" {
		where += " AND pr.cultivation_method = ?"
		args = append(args, v)
	}
	if v := c.Query("producer_username"); v != "" {
		where += " AND u.username = ?"
		args = append(args, v)
	}
	if v := c.Query("q"); v != "" {
		where += " AND (pr.name LIKE ? OR pr.description LIKE ? OR pr.category LIKE ?)"
		pattern := "%" + v + "%"
		args = append(args, pattern, pattern, pattern)
	}

	p := parsePageParams(c, 12)
	orderBy := orderClause(c.Query("ordering"), productOrderings, "pr.created_at DESC")

	var count int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM products pr JOIN users u ON pr.producer_id = u.id WHERE %s
	`, where)
	if err := ctl.DB.QueryRow(countQuery, args...).Scan(&count); err != nil {
		ctl.Logger.Errorw("failed to count products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products pr
		JOIN users u ON pr.producer_id = u.id
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, productColumns, where, orderBy)

	rows, err := ctl.DB.Query(query, append(args, p.PageSize, p.Offset())...)
	if err != nil {
		ctl.Logger.Errorw("failed to query products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			ctl.Logger.Errorw("failed to scan product", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
		products = append(products, product)
	}

	c.JSON(http.StatusOK, pagedResponse{
		Count:    count,
		Page:     p.Page,
		PageSize: p.PageSize,
		Results:  products,
	})
}

// GetProduct serves the public detail view, through the cache when one is
// configured.
func (ctl *ProductController) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid product ID"})
		return
	}

	if ctl.Cache != nil {
		if product, hit, err := ctl.Cache.Get(c.Request.Context(), id); err == nil && hit {
			c.JSON(http.StatusOK, product)
			return
		} else if err != nil {
			ctl.Logger.Warnw("product cache read failed", "product_id", id, "error", err)
		}
	}

	product, err := ctl.loadProduct(id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	if ctl.Cache != nil {
		if err := ctl.Cache.Set(c.Request.Context(), product); err != nil {
			ctl.Logger.Warnw("product cache write failed", "product_id", id, "error", err)
		}
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct lists a new product owned by the requesting user.
func (ctl *ProductController) CreateProduct(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	status := req.Status
	if status == "" {
		status = models.ProductStatusDraft
	}

	result, err := ctl.DB.Exec(`
		INSERT INTO products (producer_id, name, description, category, price, quantity, unit,
		                      cultivation_method, standard, storage_method, image_url, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, req.Name, req.Description, req.Category, req.Price, req.Quantity, req.Unit,
		req.CultivationMethod, req.Standard, req.StorageMethod, req.ImageURL, status)
	if err != nil {
		ctl.Logger.Errorw("failed to create product", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	product, err := ctl.loadProduct(id)
	if err != nil {
		ctl.Logger.Errorw("failed to load created product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct applies partial updates; only the owning producer may
// write. The cache entry is invalidated after the write.
func (ctl *ProductController) UpdateProduct(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid product ID"})
		return
	}

	ownerID, err := ctl.productOwner(id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load product owner", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to modify this product."})
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	set := []string{}
	args := []interface{}{}
	appendField := func(column string, value interface{}) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}

	if req.Name != nil {
		appendField("name", *req.Name)
	}
	if req.Description != nil {
		appendField("description", *req.Description)
	}
	if req.Category != nil {
		appendField("category", *req.Category)
	}
	if req.Price != nil {
		appendField("price", *req.Price)
	}
	if req.Quantity != nil {
		appendField("quantity", *req.Quantity)
	}
	if req.Unit != nil {
		appendField("unit", *req.Unit)
	}
	if req.CultivationMethod != nil {
		appendField("cultivation_method", *req.CultivationMethod)
	}
	if req.Standard != nil {
		appendField("standard", *req.Standard)
	}
	if req.StorageMethod != nil {
		appendField("storage_method", *req.StorageMethod)
	}
	if req.ImageURL != nil {
		appendField("image_url", *req.ImageURL)
	}
	if req.Status != nil {
		appendField("status", *req.Status)
	}

	if len(set) > 0 {
		query := "UPDATE products SET " + strings.Join(set, ", ") + " WHERE id = ?"
		args = append(args, id)
		if _, err := ctl.DB.Exec(query, args...); err != nil {
			ctl.Logger.Errorw("failed to update product", "product_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
		ctl.invalidateCache(c, id)
	}

	product, err := ctl.loadProduct(id)
	if err != nil {
		ctl.Logger.Errorw("failed to reload product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a listing; order history keeps its snapshots.
func (ctl *ProductController) DeleteProduct(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid product ID"})
		return
	}

	ownerID, err := ctl.productOwner(id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load product owner", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to modify this product."})
		return
	}

	if _, err := ctl.DB.Exec(`DELETE FROM products WHERE id = ?`, id); err != nil {
		ctl.Logger.Errorw("failed to delete product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	ctl.invalidateCache(c, id)

	c.Status(http.StatusNoContent)
}

func (ctl *ProductController) loadProduct(id int64) (models.Product, error) {
	row := ctl.DB.QueryRow(fmt.Sprintf(`
		SELECT %s
		FROM products pr
		JOIN users u ON pr.producer_id = u.id
		WHERE pr.id = ?
	`, productColumns), id)
	return scanProduct(row)
}

func (ctl *ProductController) productOwner(id int64) (int64, error) {
	var ownerID int64
	err := ctl.DB.QueryRow(`SELECT producer_id FROM products WHERE id = ?`, id).Scan(&ownerID)
	return ownerID, err
}

func (ctl *ProductController) invalidateCache(c *gin.Context, id int64) {
	if ctl.Cache == nil {
		return
	}
	if err := ctl.Cache.Invalidate(c.Request.Context(), id); err != nil {
		ctl.Logger.Warnw("product cache invalidation failed", "product_id", id, "error", err)
	}
}

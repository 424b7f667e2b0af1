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

	"farm-marketplace/middlewares"
	"farm-marketplace/models"
)

type FavoriteController struct {
	DB     *sql.DB
	Logger *zap.SugaredLogger
}

// ListFavorites returns the requesting user's favorites with the product
// nested, newest first.
func (ctl *FavoriteController) ListFavorites(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	rows, err := ctl.DB.Query(fmt.Sprintf(`
		SELECT f.id, f.created_at, %s
		FROM favorites f
		JOIN products pr ON f.product_id = pr.id
		JOIN users u ON pr.producer_id = u.id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC
	`, productColumns), userID)
	if err != nil {
		ctl.Logger.Errorw("failed to query favorites", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var fav models.Favorite
		if err := rows.Scan(
			&fav.ID, &fav.CreatedAt,
			&fav.Product.ID, &fav.Product.ProducerID, &fav.Product.ProducerUsername,
			&fav.Product.Name, &fav.Product.Description, &fav.Product.Category,
			&fav.Product.Price, &fav.Product.Quantity, &fav.Product.Unit,
			&fav.Product.CultivationMethod, &fav.Product.Standard, &fav.Product.StorageMethod,
			&fav.Product.ImageURL, &fav.Product.Status, &fav.Product.CreatedAt, &fav.Product.UpdatedAt,
		); err != nil {
			ctl.Logger.Errorw("failed to scan favorite", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
		favorites = append(favorites, fav)
	}

	c.JSON(http.StatusOK, favorites)
}

// CreateFavorite registers an active product as a favorite; duplicates are
// rejected.
func (ctl *FavoriteController) CreateFavorite(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	var req models.CreateFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	var productID int64
	err := ctl.DB.QueryRow(`
		SELECT id FROM products WHERE id = ? AND status = 'active'
	`, req.ProductID).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusBadRequest, gin.H{"product_id": "No active product found."})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load product", "product_id", req.ProductID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	result, err := ctl.DB.Exec(`
		INSERT INTO favorites (user_id, product_id) VALUES (?, ?)
	`, userID, productID)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusBadRequest, gin.H{"product_id": "This product is already a favorite."})
			return
		}
		ctl.Logger.Errorw("failed to create favorite", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	id, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{"id": id, "product_id": productID})
}

// DeleteFavorite removes one of the user's own favorites by its id.
func (ctl *FavoriteController) DeleteFavorite(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid favorite ID"})
		return
	}

	result, err := ctl.DB.Exec(`
		DELETE FROM favorites WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		ctl.Logger.Errorw("failed to delete favorite", "favorite_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Favorite not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

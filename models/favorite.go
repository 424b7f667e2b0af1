package models

import "time"

type Favorite struct {
	ID        int64     `json:"id"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateFavoriteRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

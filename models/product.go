package models

import "time"

const (
	ProductStatusDraft    = "draft"
	ProductStatusPending  = "pending"
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

var productStatuses = map[string]bool{
	ProductStatusDraft:    true,
	ProductStatusPending:  true,
	ProductStatusActive:   true,
	ProductStatusInactive: true,
}

func IsValidProductStatus(s string) bool {
	return productStatuses[s]
}

type Product struct {
	ID                int64     `json:"id"`
	ProducerID        int64     `json:"producer_id"`
	ProducerUsername  string    `json:"producer_username"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	Price             int64     `json:"price"`
	Quantity          int       `json:"quantity"`
	Unit              string    `json:"unit"`
	CultivationMethod string    `json:"cultivation_method"`
	Standard          string    `json:"standard"`
	StorageMethod     string    `json:"storage_method"`
	ImageURL          string    `json:"image_url"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Price             int64  `json:"price" binding:"min=0"`
	Quantity          int    `json:"quantity" binding:"min=0"`
	Unit              string `json:"unit" binding:"required,oneof=kg g ko fukuro hako taba"`
	CultivationMethod string `json:"cultivation_method"`
	Standard          string `json:"standard"`
	StorageMethod     string `json:"storage_method"`
	ImageURL          string `json:"image_url"`
	Status            string `json:"status" binding:"omitempty,oneof=draft pending active inactive"`
}

type UpdateProductRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	Category          *string `json:"category"`
	Price             *int64  `json:"price" binding:"omitempty,min=0"`
	Quantity          *int    `json:"quantity" binding:"omitempty,min=0"`
	Unit              *string `json:"unit" binding:"omitempty,oneof=kg g ko fukuro hako taba"`
	CultivationMethod *string `json:"cultivation_method"`
	Standard          *string `json:"standard"`
	StorageMethod     *string `json:"storage_method"`
	ImageURL          *string `json:"image_url"`
	Status            *string `json:"status" binding:"omitempty,oneof=draft pending active inactive"`
}

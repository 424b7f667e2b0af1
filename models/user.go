package models

import "time"

type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsProducer bool      `json:"is_producer"`
	CreatedAt  time.Time `json:"-"`
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type Profile struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	FarmName           string    `json:"farm_name"`
	LocationPrefecture string    `json:"location_prefecture"`
	LocationCity       string    `json:"location_city"`
	Bio                string    `json:"bio"`
	WebsiteURL         string    `json:"website_url"`
	PhoneNumber        string    `json:"phone_number"`
	PostalCode         string    `json:"postal_code"`
	Prefecture         string    `json:"prefecture"`
	City               string    `json:"city"`
	Address1           string    `json:"address1"`
	Address2           string    `json:"address2"`
	IsProducer         bool      `json:"is_producer"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	FarmName           *string `json:"farm_name"`
	LocationPrefecture *string `json:"location_prefecture"`
	LocationCity       *string `json:"location_city"`
	Bio                *string `json:"bio"`
	WebsiteURL         *string `json:"website_url"`
	PhoneNumber        *string `json:"phone_number"`
	PostalCode         *string `json:"postal_code"`
	Prefecture         *string `json:"prefecture"`
	City               *string `json:"city"`
	Address1           *string `json:"address1"`
	Address2           *string `json:"address2"`
	IsProducer         *bool   `json:"is_producer"`
}

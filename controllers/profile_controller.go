package controllers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farm-marketplace/middlewares"
	"farm-marketplace/models"
)

type ProfileController struct {
	DB     *sql.DB
	Logger *zap.SugaredLogger
}

const profileColumns = `p.id, u.username, p.farm_name, p.location_prefecture, p.location_city,
       COALESCE(p.bio, ''), p.website_url, p.phone_number,
       p.postal_code, p.prefecture, p.city, p.address1, p.address2,
       p.is_producer, p.created_at, p.updated_at`

func scanProfile(row rowScanner) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Username, &p.FarmName, &p.LocationPrefecture, &p.LocationCity,
		&p.Bio, &p.WebsiteURL, &p.PhoneNumber,
		&p.PostalCode, &p.Prefecture, &p.City, &p.Address1, &p.Address2,
		&p.IsProducer, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// ListProducers is the public producer directory: producer profiles only,
// newest first.
func (ctl *ProfileController) ListProducers(c *gin.Context) {
	where := "p.is_producer = TRUE"
	args := []interface{}{}

	if v := c.Query("location_prefecture"); v != "" {
		where += " AND p.location_prefecture = ?"
		args = append(args, v)
	}
	if v := c.Query("location_city"); v != "" {
		where += " AND p.location_city = ?"
		args = append(args, v)
	}
	if v := c.Query("q"); v != "" {
		where += " AND (p.farm_name LIKE ? OR u.username LIKE ? OR p.location_city LIKE ?)"
		pattern := "%" + v + "%"
		args = append(args, pattern, pattern, pattern)
	}

	p := parsePageParams(c, 12)

	var count int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM profiles p JOIN users u ON p.user_id = u.id WHERE %s
	`, where)
	if err := ctl.DB.QueryRow(countQuery, args...).Scan(&count); err != nil {
		ctl.Logger.Errorw("failed to count profiles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM profiles p
		JOIN users u ON p.user_id = u.id
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?
	`, profileColumns, where)

	rows, err := ctl.DB.Query(query, append(args, p.PageSize, p.Offset())...)
	if err != nil {
		ctl.Logger.Errorw("failed to query profiles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			ctl.Logger.Errorw("failed to scan profile", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
		profiles = append(profiles, profile)
	}

	c.JSON(http.StatusOK, pagedResponse{
		Count:    count,
		Page:     p.Page,
		PageSize: p.PageSize,
		Results:  profiles,
	})
}

// GetProducer returns one public producer profile by username.
func (ctl *ProfileController) GetProducer(c *gin.Context) {
	row := ctl.DB.QueryRow(fmt.Sprintf(`
		SELECT %s
		FROM profiles p
		JOIN users u ON p.user_id = u.id
		WHERE u.username = ? AND p.is_producer = TRUE
	`, profileColumns), c.Param("username"))

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Profile not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load profile", "username", c.Param("username"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// MyProfile returns the authenticated user's own profile. Registration
// creates it, so a missing row is a server error, not a 404.
func (ctl *ProfileController) MyProfile(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	row := ctl.DB.QueryRow(fmt.Sprintf(`
		SELECT %s
		FROM profiles p
		JOIN users u ON p.user_id = u.id
		WHERE p.user_id = ?
	`, profileColumns), userID)

	profile, err := scanProfile(row)
	if err != nil {
		ctl.Logger.Errorw("failed to load own profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMyProfile applies partial updates, including the producer flag.
func (ctl *ProfileController) UpdateMyProfile(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	var req models.UpdateProfileRequest
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

	if req.FarmName != nil {
		appendField("farm_name", *req.FarmName)
	}
	if req.LocationPrefecture != nil {
		appendField("location_prefecture", *req.LocationPrefecture)
	}
	if req.LocationCity != nil {
		appendField("location_city", *req.LocationCity)
	}
	if req.Bio != nil {
		appendField("bio", *req.Bio)
	}
	if req.WebsiteURL != nil {
		appendField("website_url", *req.WebsiteURL)
	}
	if req.PhoneNumber != nil {
		appendField("phone_number", *req.PhoneNumber)
	}
	if req.PostalCode != nil {
		appendField("postal_code", *req.PostalCode)
	}
	if req.Prefecture != nil {
		appendField("prefecture", *req.Prefecture)
	}
	if req.City != nil {
		appendField("city", *req.City)
	}
	if req.Address1 != nil {
		appendField("address1", *req.Address1)
	}
	if req.Address2 != nil {
		appendField("address2", *req.Address2)
	}
	if req.IsProducer != nil {
		appendField("is_producer", *req.IsProducer)
	}

	if len(set) > 0 {
		query := "UPDATE profiles SET " + strings.Join(set, ", ") + " WHERE user_id = ?"
		args = append(args, userID)
		if _, err := ctl.DB.Exec(query, args...); err != nil {
			ctl.Logger.Errorw("failed to update profile", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
	}

	ctl.MyProfile(c)
}

package controllers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"farm-marketplace/auth"
	"farm-marketplace/config"
	"farm-marketplace/middlewares"
	"farm-marketplace/models"
)

type AuthController struct {
	DB     *sql.DB
	Cfg    *config.Config
	Logger *zap.SugaredLogger
}

// Register creates the user and its profile in one transaction, so every
// account has a profile row from the start.
func (ctl *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.Password != req.Password2 {
		c.JSON(http.StatusBadRequest, gin.H{"password": "Password fields didn't match."})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		ctl.Logger.Errorw("password encryption error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	tx, err := ctl.DB.Begin()
	if err != nil {
		ctl.Logger.Errorw("failed to start transaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	result, err := tx.Exec(`
		INSERT INTO users (username, email, password_hash, first_name, last_name)
		VALUES (?, ?, ?, ?, ?)
	`, req.Username, req.Email, string(passwordHash), req.FirstName, req.LastName)
	if err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"username": "A user with that username already exists."})
			return
		}
		ctl.Logger.Errorw("failed to insert user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	userID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if _, err := tx.Exec(`INSERT INTO profiles (user_id) VALUES (?)`, userID); err != nil {
		tx.Rollback()
		ctl.Logger.Errorw("failed to create profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if err := tx.Commit(); err != nil {
		ctl.Logger.Errorw("transaction commit failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	token, err := auth.BuildJWT(ctl.Cfg.JWTSecret, userID, ctl.Cfg.TokenTTL)
	if err != nil {
		ctl.Logger.Errorw("error building JWT", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       userID,
		"username": req.Username,
		"email":    req.Email,
		"access":   token,
	})
}

// Login exchanges credentials for an access token.
func (ctl *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	var (
		userID       int64
		passwordHash string
	)
	err := ctl.DB.QueryRow(`
		SELECT id, password_hash FROM users WHERE username = ?
	`, req.Username).Scan(&userID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	token, err := auth.BuildJWT(ctl.Cfg.JWTSecret, userID, ctl.Cfg.TokenTTL)
	if err != nil {
		ctl.Logger.Errorw("error building JWT", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": token})
}

// Me returns the authenticated account with its producer flag.
func (ctl *AuthController) Me(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	var user models.User
	err := ctl.DB.QueryRow(`
		SELECT u.id, u.username, u.email, u.first_name, u.last_name,
		       COALESCE(p.is_producer, FALSE)
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = ?
	`, userID).Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.IsProducer)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	if err != nil {
		ctl.Logger.Errorw("failed to load user", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe updates the mutable account fields (names only; username and
// email changes need a different flow).
func (ctl *AuthController) UpdateMe(c *gin.Context) {
	userID, exists := middlewares.CurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if req.FirstName != nil {
		if _, err := ctl.DB.Exec(`UPDATE users SET first_name = ? WHERE id = ?`, *req.FirstName, userID); err != nil {
			ctl.Logger.Errorw("failed to update user", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
	}
	if req.LastName != nil {
		if _, err := ctl.DB.Exec(`UPDATE users SET last_name = ? WHERE id = ?`, *req.LastName, userID); err != nil {
			ctl.Logger.Errorw("failed to update user", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Database error"})
			return
		}
	}

	ctl.Me(c)
}

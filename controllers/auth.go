package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tagframe/middlewares"
	"tagframe/models"
	"tagframe/sessions"
	"tagframe/store"
	"tagframe/utils"
)

type CredentialsInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenOutput struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// startSession Register a session for user and sign its token
func startSession(registry *sessions.Registry, config *utils.Config, user *models.User) (*tokenOutput, error) {
	session := sessions.Session{
		ID:     sessions.NewID(),
		UserID: user.ID,
		Email:  user.Email,
	}
	token, expiresAt, err := utils.GenerateToken(config.Auth.JwtSecret, user.ID, user.Email, session.ID, config.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	session.ExpiresAt = expiresAt
	registry.Add(session)
	return &tokenOutput{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Register Create an account and sign it in
func Register(factory store.ShareDaoFactory, registry *sessions.Registry, config *utils.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CredentialsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		hash, err := utils.HashPassword(input.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}
		user, err := factory.Users().Create(c.Request.Context(), &models.User{Email: input.Email, PasswordHash: hash})
		if errors.Is(err, store.ErrConflict) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "this email is already registered"})
			return
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
		log.Info(fmt.Sprintf("Registered user %d", user.ID))

		out, err := startSession(registry, config, user)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": out})
	}
}

// Login Verify the credentials and start a session
func Login(factory store.ShareDaoFactory, registry *sessions.Registry, config *utils.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CredentialsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		user, err := factory.Users().GetByEmail(c.Request.Context(), input.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			abortWithError(c, err)
			return
		}
		if user == nil || !utils.VerifyPassword(user.PasswordHash, input.Password) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		out, err := startSession(registry, config, user)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": out})
	}
}

// Logout Revoke the current session
func Logout(registry *sessions.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		registry.Revoke(c.GetString(middlewares.SessionIDKey))
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}

// CurrentUser Return the signed-in user
func CurrentUser(factory store.ShareDaoFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middlewares.CurrentUser(c)
		user, err := factory.Users().Get(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

package controllers

import (
	"net/http"

	"linklet/internal/jwt"
	"linklet/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	jwtService   *jwt.JWTService
	adminKeyHash string
}

func NewAuthController(jwtService *jwt.JWTService, adminKeyHash string) *AuthController {
	return &AuthController{
		jwtService:   jwtService,
		adminKeyHash: adminKeyHash,
	}
}

// Token handles POST /api/v1/auth/token - exchanges the admin key for a
// bearer token
func (ac *AuthController) Token(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if ac.adminKeyHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Admin access is not configured",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ac.adminKeyHash), []byte(req.AdminKey)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid admin key",
		})
		return
	}

	token, expiresAt, err := ac.jwtService.GenerateToken("admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

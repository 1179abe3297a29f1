package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smmart/internal/models"
)

// ListRoles returns every role with its permissions.
func ListRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var roles []models.UserRole
		if err := db.WithContext(c.Request.Context()).Preload("Permissions").Order("id ASC").Find(&roles).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roles": roles})
	}
}

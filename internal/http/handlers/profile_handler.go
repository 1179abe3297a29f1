package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smmart/internal/accounts"
	"smmart/internal/audit"
	"smmart/internal/auth"
	"smmart/internal/models"
)

type profileInput struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Password *string `json:"password" binding:"omitempty,min=5"`
}

func loadUser(db *gorm.DB, c *gin.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.WithContext(c.Request.Context()).
		Preload("UserRole").Preload("Organization").Preload("Package").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// MeHandler returns the authenticated user with role, organization and
// package.
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := loadUser(db, c, auth.Current(c).User.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateMeHandler serves PUT (email and password required) and PATCH on the
// caller's own profile. The password is write-only.
func UpdateMeHandler(db *gorm.DB, mgr *accounts.Manager, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input profileInput
		if !bindJSON(c, &input) {
			return
		}
		if !partial && missingFields(c, map[string]bool{
			"email":    input.Email != nil,
			"password": input.Password != nil,
		}) {
			return
		}

		p := auth.Current(c)
		err := mgr.UpdateUser(c.Request.Context(), p.User, accounts.Changes{
			Email:    input.Email,
			Name:     input.Name,
			Password: input.Password,
		}, p.User.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		user, err := loadUser(db, c, p.User.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// DeleteMeHandler lets an admin close their own account.
func DeleteMeHandler(db *gorm.DB, mgr *accounts.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.Current(c)
		if err := mgr.DeleteUser(c.Request.Context(), p.User); err != nil {
			respondError(c, err)
			return
		}
		if err := audit.Record(c.Request.Context(), db, p.Actor(c), audit.Entry{
			Action:       "user.delete",
			ResourceType: "user",
			ResourceID:   p.User.ID,
			Metadata:     map[string]any{"email": p.User.Email, "self": true},
		}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

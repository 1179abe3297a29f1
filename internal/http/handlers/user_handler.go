package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smmart/internal/accounts"
	"smmart/internal/audit"
	"smmart/internal/auth"
	"smmart/internal/models"
	"smmart/internal/subscription"
)

type organizationInput struct {
	Name            string `json:"name" binding:"required,max=255"`
	Description     string `json:"description" binding:"max=3000"`
	LinkedinProfile string `json:"linkedin_profile" binding:"omitempty,url,max=500"`
	FacebookProfile string `json:"facebook_profile" binding:"omitempty,url,max=500"`
	Industry        string `json:"industry" binding:"max=1000"`
}

func (in organizationInput) model() models.Organization {
	return models.Organization{
		Name:            in.Name,
		Description:     in.Description,
		LinkedinProfile: in.LinkedinProfile,
		FacebookProfile: in.FacebookProfile,
		Industry:        in.Industry,
	}
}

// RegisterHandler is the self-service signup: it creates the organization
// and its first admin user.
func RegisterHandler(mgr *accounts.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email        string             `json:"email" binding:"required,email"`
			Password     string             `json:"password" binding:"required,min=5"`
			Name         string             `json:"name" binding:"max=255"`
			Organization *organizationInput `json:"organization" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		user, err := mgr.Register(c.Request.Context(), accounts.Registration{
			Email:        input.Email,
			Password:     input.Password,
			Name:         input.Name,
			Organization: input.Organization.model(),
			IP:           c.ClientIP(),
			UserAgent:    c.GetHeader("User-Agent"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// orgUser loads a user of the caller's organization.
func orgUser(db *gorm.DB, c *gin.Context) (*models.User, bool) {
	id, ok := userID(c)
	if !ok {
		return nil, false
	}
	user, err := loadUser(db.Where("organization_id = ?", auth.Current(c).User.OrganizationID), c, id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return user, true
}

// ListUsers returns the users of the caller's organization.
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		err := db.WithContext(c.Request.Context()).
			Preload("UserRole").
			Where("organization_id = ?", auth.Current(c).User.OrganizationID).
			Order("id ASC").
			Find(&users).Error
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// CreateUser invites a user into the admin's organization on the
// organization's current package.
func CreateUser(db *gorm.DB, mgr *accounts.Manager, subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=5"`
			Name     string `json:"name" binding:"max=255"`
			Role     string `json:"role" binding:"required,oneof=admin user"`
		}
		if !bindJSON(c, &input) {
			return
		}

		ctx := c.Request.Context()
		p := auth.Current(c)

		role, err := accounts.RoleByName(db.WithContext(ctx), input.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		current, err := subs.Current(ctx, p.User.OrganizationID)
		if err != nil {
			respondError(c, err)
			return
		}

		created, err := mgr.CreateUser(ctx, accounts.NewUser{
			Email:          input.Email,
			Password:       input.Password,
			Name:           input.Name,
			OrganizationID: p.User.OrganizationID,
			RoleID:         role.ID,
			PackageID:      current.PackageID,
			CreatedBy:      p.User.ID,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		if err := audit.Record(ctx, db, p.Actor(c), audit.Entry{
			Action:       "user.create",
			ResourceType: "user",
			ResourceID:   created.ID,
			Metadata:     map[string]any{"email": created.Email, "role": role.Name},
		}); err != nil {
			respondError(c, err)
			return
		}

		user, err := loadUser(db, c, created.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func GetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := orgUser(db, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateUser serves PUT (email and role required) and PATCH on a user of
// the caller's organization.
func UpdateUser(db *gorm.DB, mgr *accounts.Manager, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    *string `json:"email" binding:"omitempty,email"`
			Name     *string `json:"name" binding:"omitempty,max=255"`
			Password *string `json:"password" binding:"omitempty,min=5"`
			Role     *string `json:"role" binding:"omitempty,oneof=admin user"`
			IsActive *bool   `json:"is_active"`
		}
		if !bindJSON(c, &input) {
			return
		}
		if !partial && missingFields(c, map[string]bool{
			"email": input.Email != nil,
			"role":  input.Role != nil,
		}) {
			return
		}

		user, ok := orgUser(db, c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		ch := accounts.Changes{
			Email:    input.Email,
			Name:     input.Name,
			Password: input.Password,
			IsActive: input.IsActive,
		}
		if input.Role != nil {
			role, err := accounts.RoleByName(db.WithContext(ctx), *input.Role)
			if err != nil {
				respondError(c, err)
				return
			}
			ch.RoleID = &role.ID
		}

		p := auth.Current(c)
		if err := mgr.UpdateUser(ctx, user, ch, p.User.ID); err != nil {
			respondError(c, err)
			return
		}
		if err := audit.Record(ctx, db, p.Actor(c), audit.Entry{
			Action:       "user.update",
			ResourceType: "user",
			ResourceID:   user.ID,
			Metadata:     map[string]any{"email": user.Email},
		}); err != nil {
			respondError(c, err)
			return
		}

		updated, err := loadUser(db, c, user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteUser removes a user of the caller's organization. Admins delete
// themselves through /admin/user/.
func DeleteUser(db *gorm.DB, mgr *accounts.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := orgUser(db, c)
		if !ok {
			return
		}
		p := auth.Current(c)
		if user.ID == p.User.ID {
			fieldError(c, "non_field_errors", "Use /admin/user/ to delete your own account.")
			return
		}

		ctx := c.Request.Context()
		if err := mgr.DeleteUser(ctx, user); err != nil {
			respondError(c, err)
			return
		}
		if err := audit.Record(ctx, db, p.Actor(c), audit.Entry{
			Action:       "user.delete",
			ResourceType: "user",
			ResourceID:   user.ID,
			Metadata:     map[string]any{"email": user.Email},
		}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smmart/internal/audit"
	"smmart/internal/auth"
	"smmart/internal/models"
)

func GetOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var org models.Organization
		if err := db.WithContext(c.Request.Context()).First(&org, auth.Current(c).User.OrganizationID).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

// UpdateOrganization serves PUT (name required) and PATCH on the caller's
// organization.
func UpdateOrganization(db *gorm.DB, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name            *string `json:"name" binding:"omitempty,min=1,max=255"`
			Description     *string `json:"description" binding:"omitempty,max=3000"`
			LinkedinProfile *string `json:"linkedin_profile" binding:"omitempty,url,max=500"`
			FacebookProfile *string `json:"facebook_profile" binding:"omitempty,url,max=500"`
			Industry        *string `json:"industry" binding:"omitempty,max=1000"`
		}
		if !bindJSON(c, &input) {
			return
		}
		if !partial && missingFields(c, map[string]bool{"name": input.Name != nil}) {
			return
		}

		p := auth.Current(c)
		updates := map[string]any{
			"last_updated_by":   p.User.ID,
			"last_update_login": p.User.ID,
		}
		set := func(column string, v *string) {
			if v != nil {
				updates[column] = *v
			}
		}
		set("name", input.Name)
		set("description", input.Description)
		set("linkedin_profile", input.LinkedinProfile)
		set("facebook_profile", input.FacebookProfile)
		set("industry", input.Industry)

		ctx := c.Request.Context()
		var org models.Organization
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&org, p.User.OrganizationID).Error; err != nil {
				return err
			}
			if err := tx.Model(&org).Updates(updates).Error; err != nil {
				return fmt.Errorf("updating organization %d: %w", org.ID, err)
			}
			if err := tx.First(&org, org.ID).Error; err != nil {
				return err
			}
			return audit.Record(ctx, tx, p.Actor(c), audit.Entry{
				Action:       "organization.update",
				ResourceType: "organization",
				ResourceID:   org.ID,
			})
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

// DeleteOrganization removes the caller's organization with its users,
// their topics, its subscription history and payments.
func DeleteOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.Current(c)
		orgID := p.User.OrganizationID
		ctx := c.Request.Context()

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var org models.Organization
			if err := tx.First(&org, orgID).Error; err != nil {
				return err
			}
			members := tx.Model(&models.User{}).Select("id").Where("organization_id = ?", orgID)
			steps := []struct {
				what string
				run  func() error
			}{
				{"topics", func() error { return tx.Where("user_id IN (?)", members).Delete(&models.Topic{}).Error }},
				{"users", func() error { return tx.Where("organization_id = ?", orgID).Delete(&models.User{}).Error }},
				{"subscriptions", func() error {
					return tx.Where("organization_id = ?", orgID).Delete(&models.PackageStatus{}).Error
				}},
				{"payments", func() error { return tx.Where("organization_id = ?", orgID).Delete(&models.Payment{}).Error }},
				{"organization", func() error { return tx.Delete(&org).Error }},
			}
			for _, s := range steps {
				if err := s.run(); err != nil {
					return fmt.Errorf("deleting %s of org %d: %w", s.what, orgID, err)
				}
			}
			return audit.Record(ctx, tx, p.Actor(c), audit.Entry{
				Action:       "organization.delete",
				ResourceType: "organization",
				ResourceID:   orgID,
				Metadata:     map[string]any{"name": org.Name},
			})
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

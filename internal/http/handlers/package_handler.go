package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smmart/internal/auth"
	"smmart/internal/subscription"
)

// ListPackages is public so prospective customers can compare tiers.
func ListPackages(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		pkgs, err := subs.Packages(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"packages": pkgs})
	}
}

// CurrentPackage returns the organization's active subscription.
func CurrentPackage(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := subs.Current(c.Request.Context(), auth.Current(c).User.OrganizationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// AssignPackage switches the organization to the named package, or renews
// it when it is already active.
func AssignPackage(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name string `json:"name" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		p := auth.Current(c)
		res, err := subs.Assign(c.Request.Context(), p.Actor(c), input.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res.Status)
	}
}

// PackageHistory lists every subscription period of the organization,
// newest first.
func PackageHistory(subs *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := subs.History(c.Request.Context(), auth.Current(c).User.OrganizationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": rows})
	}
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smmart/internal/auth"
	"smmart/internal/models"
)

const (
	auditPageSize    = 20
	auditMaxPageSize = 100
)

// auditFilter is the query string of GET /admin/audit. Malformed numbers
// fall back to their defaults rather than failing the request.
type auditFilter struct {
	limit        int
	afterID      int64
	userID       int64
	action       string
	resourceType string
	search       string
}

func parseAuditFilter(c *gin.Context) auditFilter {
	f := auditFilter{
		limit:        auditPageSize,
		afterID:      positiveInt(c.Query("after_id")),
		userID:       positiveInt(c.Query("user_id")),
		action:       strings.TrimSpace(c.Query("action")),
		resourceType: strings.TrimSpace(c.Query("resource_type")),
		search:       strings.TrimSpace(c.Query("q")),
	}
	if n := positiveInt(c.Query("limit")); n > 0 {
		f.limit = int(min(n, auditMaxPageSize))
	}
	return f
}

func positiveInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// scope narrows q to one organization's entries matching f.
func (f auditFilter) scope(q *gorm.DB, orgID int64) *gorm.DB {
	q = q.Where("org_id = ?", orgID)
	if f.afterID > 0 {
		q = q.Where("id < ?", f.afterID)
	}
	if f.userID > 0 {
		q = q.Where("user_id = ?", f.userID)
	}
	if f.action != "" {
		q = q.Where("action = ?", f.action)
	}
	if f.resourceType != "" {
		q = q.Where("resource_type = ?", f.resourceType)
	}
	if f.search != "" {
		like := "%" + f.search + "%"
		q = q.Where("(initiator_name LIKE ? OR action LIKE ? OR resource_type LIKE ? OR ip LIKE ?)",
			like, like, like, like)
	}
	return q
}

// ListAudit pages through the organization's audit trail, newest first.
// Pass next_cursor back as after_id to fetch the following page; action,
// resource_type and user_id narrow to exact matches and q searches text.
func ListAudit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := parseAuditFilter(c)
		q := f.scope(db.WithContext(c.Request.Context()).Model(&models.AuditLog{}), auth.Current(c).User.OrganizationID)

		var entries []models.AuditLog
		if err := q.Order("id DESC").Limit(f.limit + 1).Find(&entries).Error; err != nil {
			respondError(c, err)
			return
		}

		var next *int64
		if len(entries) > f.limit {
			entries = entries[:f.limit]
			id := entries[f.limit-1].ID
			next = &id
		}
		c.JSON(http.StatusOK, gin.H{"logs": entries, "next_cursor": next})
	}
}

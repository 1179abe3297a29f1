package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"smmart/internal/models"
)

// Actor identifies who performed an action and from where.
type Actor struct {
	UserID    int64
	OrgID     int64
	Name      string
	IP        string
	UserAgent string
}

// Entry describes one audited change.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   int64
	Metadata     map[string]any
}

// Record writes an audit row using tx, so it commits or rolls back together
// with the change it describes.
func Record(ctx context.Context, tx *gorm.DB, actor Actor, e Entry) error {
	var meta datatypes.JSON
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
		meta = datatypes.JSON(b)
	}

	row := models.AuditLog{
		OrgID:         actor.OrgID,
		UserID:        actor.UserID,
		Action:        e.Action,
		ResourceType:  e.ResourceType,
		ResourceID:    e.ResourceID,
		Metadata:      meta,
		IP:            actor.IP,
		InitiatorName: actor.Name,
		UserAgent:     actor.UserAgent,
		CreatedAt:     time.Now(),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("writing audit log %s: %w", e.Action, err)
	}
	return nil
}

package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smmart/internal/audit"
	"smmart/internal/db/dbtest"
	"smmart/internal/models"
)

func TestRecord(t *testing.T) {
	gdb := dbtest.New(t)
	actor := audit.Actor{UserID: 2, OrgID: 1, Name: "Ada", IP: "10.0.0.1", UserAgent: "curl"}

	err := audit.Record(context.Background(), gdb, actor, audit.Entry{
		Action:       "package.assign",
		ResourceType: "package_status",
		ResourceID:   9,
		Metadata:     map[string]any{"package": "pro"},
	})
	require.NoError(t, err)

	var row models.AuditLog
	require.NoError(t, gdb.First(&row).Error)
	assert.Equal(t, int64(1), row.OrgID)
	assert.Equal(t, "Ada", row.InitiatorName)
	assert.Equal(t, "package.assign", row.Action)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(row.Metadata, &meta))
	assert.Equal(t, "pro", meta["package"])
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinSplitList(t *testing.T) {
	assert.Equal(t, "go,rust", JoinList([]string{" go ", "", "rust"}))
	assert.Equal(t, "", JoinList(nil))

	assert.Equal(t, []string{"linkedin", "x"}, SplitList("linkedin, x,"))
	assert.Equal(t, []string{}, SplitList(""))
}

func TestPriceCents(t *testing.T) {
	assert.Equal(t, int64(999), Package{Price: 9.99}.PriceCents())
	assert.Equal(t, int64(2999), Package{Price: 29.99}.PriceCents())
	assert.Equal(t, int64(0), Package{}.PriceCents())
}

func TestAuditColumnsStamp(t *testing.T) {
	var a AuditColumns
	a.Stamp(3)
	assert.Equal(t, int64(3), *a.CreatedBy)
	assert.Equal(t, int64(3), *a.LastUpdatedBy)

	a.Stamp(4)
	assert.Equal(t, int64(3), *a.CreatedBy)
	assert.Equal(t, int64(4), *a.LastUpdatedBy)
	assert.Equal(t, int64(4), *a.LastUpdateLogin)

	var empty AuditColumns
	empty.Stamp(0)
	assert.Nil(t, empty.CreatedBy)
}

func TestPackageStatusActive(t *testing.T) {
	assert.True(t, PackageStatus{Status: PackageActive}.Active())
	assert.False(t, PackageStatus{Status: PackageInactive}.Active())
}

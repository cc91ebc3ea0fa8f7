package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castypos.com/posserver/internal/plan"
)

func TestParseID(t *testing.T) {
	id, err := plan.ParseID(" Pro ")
	require.NoError(t, err)
	assert.Equal(t, plan.Pro, id)

	_, err = plan.ParseID("enterprise")
	assert.Error(t, err)
}

func TestNewCatalog_Defaults(t *testing.T) {
	c, err := plan.NewCatalog(nil)
	require.NoError(t, err)

	p, ok := c.Lookup(plan.Pro)
	require.True(t, ok)
	assert.Equal(t, 3, p.MaxDevices)
	assert.Equal(t, "Pro", p.Label)
	assert.Len(t, c.All(), 3)
}

func TestNewCatalog_Overrides(t *testing.T) {
	c, err := plan.NewCatalog(map[plan.ID]plan.Plan{
		plan.Starter: {MaxDevices: 2},
	})
	require.NoError(t, err)

	p, ok := c.Lookup(plan.Starter)
	require.True(t, ok)
	assert.Equal(t, 2, p.MaxDevices)
	assert.Equal(t, "Starter", p.Label, "label falls back to default")
	assert.Equal(t, "Starter", c.Label(plan.Starter))
	assert.Equal(t, "legacy", c.Label(plan.ID("legacy")))
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := plan.NewCatalog(map[plan.ID]plan.Plan{"gold": {MaxDevices: 1}})
	assert.Error(t, err)

	_, err = plan.NewCatalog(map[plan.ID]plan.Plan{plan.Pro: {MaxDevices: -1}})
	assert.Error(t, err)
}

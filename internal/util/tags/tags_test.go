package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForDeployment(t *testing.T) {
	got := ForDeployment("dep-1", "demo")

	assert.Equal(t, "dep-1", got[KeyDeployment])
	assert.Equal(t, "demo", got[KeyCluster])
	assert.Equal(t, ManagedByMeridian, got[KeyManagedBy])
}

func TestSelectorForDeployment(t *testing.T) {
	selector := SelectorForDeployment("dep-1")

	assert.Equal(t, "dep-1", selector[KeyDeployment])
	assert.Equal(t, ManagedByMeridian, selector[KeyManagedBy])
	assert.NotContains(t, selector, KeyCluster, "selector must match regardless of cluster name")
}

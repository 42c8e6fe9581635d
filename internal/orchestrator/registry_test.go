package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/goharvest/internal/orchestrator"
)

func TestCancelRegistry(t *testing.T) {
	registry := orchestrator.NewCancelRegistry()

	_, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelA()
	defer cancelB()

	registry.Add("exec-a", cancelA)
	registry.Add("exec-b", cancelB)

	assert.Equal(t, 2, registry.Len())
	assert.True(t, registry.Contains("exec-a"))
	assert.False(t, registry.Contains("exec-missing"))

	// Remove drops the handle without signalling it.
	registry.Remove("exec-a")
	assert.False(t, registry.Contains("exec-a"))
	assert.Equal(t, 1, registry.Len())

	// Cancel signals and reports hit or miss; the handle stays registered
	// until its owner removes it.
	assert.True(t, registry.Cancel("exec-b"))
	assert.Error(t, ctxB.Err())
	assert.True(t, registry.Contains("exec-b"))

	assert.False(t, registry.Cancel("exec-missing"))
}

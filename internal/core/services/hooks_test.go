package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/services"
)

func TestHookRegistry(t *testing.T) {
	registry := services.NewHookRegistry()

	t.Run("unknown identifier", func(t *testing.T) {
		hook, ok := registry.Resolve("missing")
		assert.False(t, ok)
		assert.Nil(t, hook)
	})

	t.Run("registered hook is invokable", func(t *testing.T) {
		sentinel := errors.New("vetoed")
		registry.Register("guard", ports.HookFunc(func(ctx context.Context, input ports.HookInput) error {
			return sentinel
		}))

		hook, ok := registry.Resolve("guard")
		require.True(t, ok)
		assert.ErrorIs(t, hook.Invoke(context.Background(), ports.HookInput{}), sentinel)
	})

	t.Run("re-registration replaces the handler", func(t *testing.T) {
		registry.Register("guard", ports.HookFunc(func(ctx context.Context, input ports.HookInput) error {
			return nil
		}))

		hook, ok := registry.Resolve("guard")
		require.True(t, ok)
		assert.NoError(t, hook.Invoke(context.Background(), ports.HookInput{}))
	})
}

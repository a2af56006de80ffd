package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/lithic/pkg/logging"
)

func TestFromContext(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
		//nolint:staticcheck // nil context is handled explicitly
		assert.Same(t, logging.Default(), logging.FromContext(nil))
	})

	t.Run("nil logger stores default", func(t *testing.T) {
		ctx := logging.WithLogger(context.Background(), nil)
		assert.Same(t, logging.Default(), logging.Ctx(ctx))
	})
}

func TestContextFields(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithSource(ctx, "pets")
	ctx = logging.WithRepo(ctx, "acme/schemas", "main")
	ctx = logging.WithOutput(ctx, "models")
	ctx = logging.WithField(ctx, logging.FieldState, "cloned")

	logging.FromContext(ctx).Info().Msg("state changed")

	tl.AssertContains(t, `"source":"pets"`)
	tl.AssertContains(t, `"repo":"acme/schemas"`)
	tl.AssertContains(t, `"branch":"main"`)
	tl.AssertContains(t, `"output":"models"`)
	tl.AssertContains(t, `"state":"cloned"`)
}

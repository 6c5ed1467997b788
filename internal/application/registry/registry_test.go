package registry

import (
	"context"
	"testing"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(note string) HandlerFunc {
	return func(ctx context.Context, state domain.State, params map[string]any, tools ToolSet) (*domain.Result, error) {
		return &domain.Result{Note: note}, nil
	}
}

func TestRegistryResolveByKind(t *testing.T) {
	r := New()
	r.RegisterBlocking("cpu", noop("cpu"))
	r.RegisterSuspending("io", noop("io"))

	h, ok := r.Resolve("cpu")
	require.True(t, ok)
	assert.Equal(t, KindBlocking, h.Kind)

	h, ok = r.Resolve("io")
	require.True(t, ok)
	assert.Equal(t, KindSuspending, h.Kind)

	_, ok = r.Resolve("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"cpu", "io"}, r.Names())
}

func TestRegistryOverwrite(t *testing.T) {
	r := New()
	r.RegisterBlocking("h", noop("first"))
	r.RegisterSuspending("h", noop("second"))

	h, ok := r.Resolve("h")
	require.True(t, ok)
	assert.Equal(t, KindSuspending, h.Kind)

	res, err := h.Fn(context.Background(), domain.State{}, nil, NewTools().View())
	require.NoError(t, err)
	assert.Equal(t, "second", res.Note)
}

func TestToolSetCall(t *testing.T) {
	tools := NewTools()
	tools.Register("len", func(ctx context.Context, input string) (map[string]any, error) {
		return map[string]any{"len": len(input)}, nil
	})
	view := tools.View()

	out, err := view.Call(context.Background(), "len", "abcd")
	require.NoError(t, err)
	assert.Equal(t, 4, out["len"])
	assert.True(t, view.Has("len"))
	assert.Equal(t, []string{"len"}, view.Names())

	_, err = view.Call(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

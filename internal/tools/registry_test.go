package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name string
	err  error
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echoes its input" }
func (e *echoTool) Schema() *Schema     { return &Schema{Type: "object"} }

func (e *echoTool) Execute(ctx context.Context, input *Input) (*Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	time.Sleep(time.Millisecond)
	return &Result{Success: true, Data: input.Data}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "zeta"})
	r.Register(&echoTool{name: "alpha"})

	listed := r.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "alpha", listed[0].Name())
	assert.Equal(t, "zeta", listed[1].Name())

	_, err := r.Get("missing")
	assert.EqualError(t, err, "tool not found: missing")

	res, err := r.Execute(context.Background(), &Input{Name: "alpha", Data: map[string]any{"k": "v"}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "v", res.Data["k"])
	assert.Greater(t, res.Stats.ExecutionTime, time.Duration(0))
}

func TestRegistryPropagatesToolError(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "broken", err: errors.New("boom")})

	_, err := r.Execute(context.Background(), &Input{Name: "broken"})
	assert.EqualError(t, err, "boom")
}

package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a4way/report-agent-workflow/internal/llm"
	"github.com/a4way/report-agent-workflow/internal/llm/llmtest"
)

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   llm.ErrorCode
	}{
		{401, llm.ErrAuth},
		{403, llm.ErrAuth},
		{404, llm.ErrModelNotFound},
		{408, llm.ErrTimeout},
		{429, llm.ErrRateLimited},
		{400, llm.ErrInvalidRequest},
		{500, llm.ErrUnavailable},
		{503, llm.ErrUnavailable},
		{529, llm.ErrOverloaded},
		{302, llm.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, llm.CodeForStatus(tt.status))
		})
	}
}

func TestNormalizeError(t *testing.T) {
	assert.Nil(t, llm.NormalizeError(nil))

	pe := &llm.ProviderError{Code: llm.ErrAuth, Message: "bad key"}
	assert.Same(t, pe, llm.NormalizeError(fmt.Errorf("wrapped: %w", pe)))

	timeout := llm.NormalizeError(context.DeadlineExceeded)
	assert.Equal(t, llm.ErrTimeout, timeout.Code)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	unknown := llm.NormalizeError(errors.New("boom"))
	assert.Equal(t, llm.ErrUnknown, unknown.Code)
	assert.Equal(t, "boom (unknown)", unknown.Error())
}

func TestProviderErrorMessage(t *testing.T) {
	err := &llm.ProviderError{Code: llm.ErrRateLimited, Message: "slow down", HTTPStatus: 429}
	assert.Equal(t, "slow down (rate_limited, HTTP 429)", err.Error())
}

func TestLimitedWaitsOnLimiter(t *testing.T) {
	fake := llmtest.NewFake().AddResponse("ping", "pong")
	limited := llm.Limited(fake, llm.NewLimiter(1000, 1))

	out, err := limited.Complete(context.Background(), "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, 1, fake.CallCount())
}

func TestLimitedCancelledContext(t *testing.T) {
	fake := llmtest.NewFake()
	limiter := llm.NewLimiter(0.001, 1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := llm.Limited(fake, limiter).Complete(ctx, "", "hello")
	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, llm.ErrRateLimited, pe.Code)
	assert.Equal(t, 0, fake.CallCount())
}

func TestNilLimiterPassesThrough(t *testing.T) {
	fake := llmtest.NewFake()
	assert.Same(t, fake, llm.Limited(fake, nil))

	var l *llm.Limiter
	assert.NoError(t, l.Wait(context.Background()))
}

func TestFakeRules(t *testing.T) {
	fake := llmtest.NewFake().
		AddError("explode", errors.New("service down")).
		AddFunc("echo", func(system, user string) string { return system + "|" + user }).
		AddResponse("analyst", "analysis text")

	_, err := fake.Complete(context.Background(), "", "please explode")
	assert.EqualError(t, err, "service down")

	out, err := fake.Complete(context.Background(), "sys", "echo me")
	require.NoError(t, err)
	assert.Equal(t, "sys|echo me", out)

	out, err = fake.Complete(context.Background(), "you are an analyst", "anything")
	require.NoError(t, err)
	assert.Equal(t, "analysis text", out)

	out, err = fake.Complete(context.Background(), "", "first line\nsecond line")
	require.NoError(t, err)
	assert.Equal(t, "Mock response for: first line", out)

	assert.Equal(t, 4, fake.CallCount())
	assert.Equal(t, "first line\nsecond line", fake.LastCall().User)
}

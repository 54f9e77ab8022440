package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatnerd/internal/reader"
	"chatnerd/internal/tier"
)

type stubPages struct {
	results []reader.Result
	gotURLs []string
}

func (s *stubPages) ReadPages(ctx context.Context, urls []string, timeout time.Duration) []reader.Result {
	s.gotURLs = urls
	return s.results
}

type stubRunner struct {
	stdout, stderr string
	err            error
	gotCode        string
}

func (s *stubRunner) RunCode(ctx context.Context, code string) (string, string, error) {
	s.gotCode = code
	return s.stdout, s.stderr, s.err
}

func TestBuiltinCatalogueTiers(t *testing.T) {
	reg, err := NewRegistry(BuiltinCatalogue()...)
	require.NoError(t, err)

	assert.True(t, reg.HasAccess(ToolCalculator, tier.Free))
	assert.True(t, reg.HasAccess(ToolCurrentTime, tier.Free))
	assert.True(t, reg.HasAccess(ToolWebRead, tier.Free))
	assert.False(t, reg.HasAccess(ToolCodeExecute, tier.Free), "code execution is a paid capability")
	assert.True(t, reg.HasAccess(ToolCodeExecute, tier.Plus))
}

func TestCalculatorHandler(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"12 * (3 + 4)", "84"},
		{"10 / 4", "2.5"},
		{"-3 + 5", "2"},
		{"2 * -4", "-8"},
	}
	for _, tt := range tests {
		got, err := executeCalculator(ctx, map[string]any{"expression": tt.expr})
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, tt.want, got, "expr %q", tt.expr)
	}

	_, err := executeCalculator(ctx, map[string]any{})
	assert.ErrorIs(t, err, ErrMissingArg)

	_, err = executeCalculator(ctx, map[string]any{"expression": "1/0"})
	assert.Error(t, err)

	_, err = executeCalculator(ctx, map[string]any{"expression": "rm -rf"})
	assert.Error(t, err)
}

func TestCurrentTimeHandler(t *testing.T) {
	ctx := context.Background()

	out, err := executeCurrentTime(ctx, map[string]any{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = executeCurrentTime(ctx, map[string]any{"timezone": "UTC"})
	require.NoError(t, err)
	assert.Contains(t, out, "UTC")

	_, err = executeCurrentTime(ctx, map[string]any{"timezone": "Mars/Olympus"})
	assert.Error(t, err)
}

func TestWebReadHandler(t *testing.T) {
	ctx := context.Background()
	pages := &stubPages{results: []reader.Result{
		{Success: true, URL: "https://a", Title: "A", Markdown: "alpha"},
		{Success: false, URL: "https://b", Err: "timeout after 1s"},
	}}
	handler := webReadHandler(pages)

	out, err := handler(ctx, map[string]any{"urls": []any{"https://a", "https://b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a", "https://b"}, pages.gotURLs)
	assert.Contains(t, out, "## A")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "(failed) https://b")
	assert.Contains(t, out, "timeout after 1s")

	t.Run("single url arg", func(t *testing.T) {
		pages.results = pages.results[:1]
		_, err := handler(ctx, map[string]any{"url": "https://a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a"}, pages.gotURLs)
	})

	t.Run("missing urls", func(t *testing.T) {
		_, err := handler(ctx, map[string]any{})
		assert.ErrorIs(t, err, ErrMissingArg)
	})

	t.Run("unconfigured reader", func(t *testing.T) {
		_, err := webReadHandler(nil)(ctx, map[string]any{"url": "https://a"})
		assert.Error(t, err)
	})
}

func TestCodeExecuteHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("stdout and stderr combined", func(t *testing.T) {
		runner := &stubRunner{stdout: "hello", stderr: "warn: deprecation"}
		out, err := codeExecuteHandler(runner)(ctx, map[string]any{"code": "print('hello')"})
		require.NoError(t, err)
		assert.Equal(t, "print('hello')", runner.gotCode)
		assert.Contains(t, out, "hello")
		assert.Contains(t, out, "--- stderr ---")
		assert.Contains(t, out, "warn: deprecation")
	})

	t.Run("runner error propagates", func(t *testing.T) {
		runner := &stubRunner{err: errors.New("sandbox gone")}
		_, err := codeExecuteHandler(runner)(ctx, map[string]any{"code": "x"})
		assert.Error(t, err)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := codeExecuteHandler(&stubRunner{})(ctx, map[string]any{})
		assert.ErrorIs(t, err, ErrMissingArg)
	})

	t.Run("unconfigured runner", func(t *testing.T) {
		_, err := codeExecuteHandler(nil)(ctx, map[string]any{"code": "x"})
		assert.Error(t, err)
	})
}

package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatnerd/internal/reader"
	"chatnerd/internal/tier"
)

// Tool IDs for the built-in catalogue.
const (
	ToolCalculator  = "calculator"
	ToolCurrentTime = "current_time"
	ToolWebRead     = "web_read"
	ToolCodeExecute = "code_execute"
)

// PageReader fetches a batch of URLs under a time budget. Satisfied by
// *reader.Reader.
type PageReader interface {
	ReadPages(ctx context.Context, urls []string, timeout time.Duration) []reader.Result
}

// CodeRunner executes code in the sandbox owned by the current workflow
// run. The workflow binds this to its single session so tool calls stay
// serialized.
type CodeRunner interface {
	RunCode(ctx context.Context, code string) (stdout, stderr string, err error)
}

// BuiltinDeps carries the capabilities the built-in handlers need.
type BuiltinDeps struct {
	Reader PageReader
	Code   CodeRunner
}

// BuiltinCatalogue returns the descriptors for the built-in tools, in the
// order they should appear in listings.
func BuiltinCatalogue() []Descriptor {
	return []Descriptor{
		{
			ID:          ToolCalculator,
			Name:        "Calculator",
			Description: "Evaluate an arithmetic expression and return the numeric result",
			MinTier:     tier.Free,
			Keywords:    []string{"math", "arithmetic", "calculate", "compute"},
			Examples:    []string{"what is 12 * (3 + 4)?", "compute 365 / 7"},
		},
		{
			ID:          ToolCurrentTime,
			Name:        "Current Time",
			Description: "Return the current date and time, optionally in a named timezone",
			MinTier:     tier.Free,
			Keywords:    []string{"time", "date", "clock", "timezone", "now"},
			Examples:    []string{"what time is it in Tokyo?", "today's date"},
		},
		{
			ID:          ToolWebRead,
			Name:        "Web Reader",
			Description: "Fetch one or more web pages and return their content as markdown",
			MinTier:     tier.Free,
			Keywords:    []string{"web", "url", "fetch", "read", "browse", "page"},
			Examples:    []string{"read https://example.com and summarize it"},
		},
		{
			ID:          ToolCodeExecute,
			Name:        "Code Execution",
			Description: "Run code in an isolated remote sandbox and return stdout/stderr",
			MinTier:     tier.Plus,
			Keywords:    []string{"code", "python", "run", "execute", "sandbox", "script"},
			Examples:    []string{"run this script and show the output"},
		},
	}
}

// BuiltinHandlers returns the dispatch table for the built-in tools.
// Handlers for capabilities missing from deps report a clear error instead
// of being silently absent, so a misconfigured turn fails loudly.
func BuiltinHandlers(deps BuiltinDeps) map[string]HandlerFunc {
	return map[string]HandlerFunc{
		ToolCalculator:  executeCalculator,
		ToolCurrentTime: executeCurrentTime,
		ToolWebRead:     webReadHandler(deps.Reader),
		ToolCodeExecute: codeExecuteHandler(deps.Code),
	}
}

func executeCalculator(ctx context.Context, args map[string]any) (string, error) {
	expr, _ := args["expression"].(string)
	if expr == "" {
		return "", fmt.Errorf("%w: expression", ErrMissingArg)
	}

	value, err := evalExpression(expr)
	if err != nil {
		return "", fmt.Errorf("cannot evaluate %q: %w", expr, err)
	}
	return formatNumber(value), nil
}

func executeCurrentTime(ctx context.Context, args map[string]any) (string, error) {
	loc := time.Local
	if name, ok := args["timezone"].(string); ok && name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", name, err)
		}
		loc = l
	}
	return time.Now().In(loc).Format(time.RFC1123), nil
}

func webReadHandler(pages PageReader) HandlerFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		if pages == nil {
			return "", fmt.Errorf("web reader is not configured")
		}

		urls := stringSlice(args["urls"])
		if url, ok := args["url"].(string); ok && url != "" {
			urls = append(urls, url)
		}
		if len(urls) == 0 {
			return "", fmt.Errorf("%w: url or urls", ErrMissingArg)
		}

		timeout := time.Duration(0) // 0 = reader default
		if ms, ok := intArg(args["timeout_ms"]); ok && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}

		results := pages.ReadPages(ctx, urls, timeout)

		var sb strings.Builder
		for i, res := range results {
			if i > 0 {
				sb.WriteString("\n\n---\n\n")
			}
			if res.Success {
				fmt.Fprintf(&sb, "## %s\nURL: %s\n\n%s", res.Title, res.URL, res.Markdown)
			} else {
				fmt.Fprintf(&sb, "## (failed) %s\nError: %s", res.URL, res.Err)
			}
		}
		return sb.String(), nil
	}
}

func codeExecuteHandler(runner CodeRunner) HandlerFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		if runner == nil {
			return "", fmt.Errorf("code execution is not configured")
		}

		code, _ := args["code"].(string)
		if code == "" {
			return "", fmt.Errorf("%w: code", ErrMissingArg)
		}

		stdout, stderr, err := runner.RunCode(ctx, code)
		if err != nil {
			return "", err
		}

		output := stdout
		if stderr != "" {
			if output != "" {
				output += "\n--- stderr ---\n"
			}
			output += stderr
		}
		return output, nil
	}
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func intArg(v any) (int, bool) {
	switch vv := v.(type) {
	case int:
		return vv, true
	case int64:
		return int(vv), true
	case float64:
		return int(vv), true
	default:
		return 0, false
	}
}

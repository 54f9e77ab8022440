// This file implements the run command: build a workflow plan from
// flags, drive it through a workflow instance, and print the outcome.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chatnerd/internal/tier"
	"chatnerd/internal/tools"
	"chatnerd/internal/workflow"
)

func runCmd() *cobra.Command {
	var (
		userID   string
		tierName string
		exprs    []string
		urls     []string
		code     string
		parallel bool
		showTime bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow plan of tool calls",
		Long: `Build a plan from the given flags and run it through a workflow
instance, exactly as the chat layer would for one assistant turn.

Each --expr becomes a calculator step, each --url a web_read step, and
--code a code_execute step (requires the plus tier, a configured sandbox
provider, and remaining daily quota).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := tier.Parse(tierName)
			if !ok {
				return fmt.Errorf("unknown tier %q (want free or plus)", tierName)
			}

			plan := buildPlan(exprs, urls, code, showTime, parallel)
			if len(plan.Steps) == 0 {
				return fmt.Errorf("empty plan: pass at least one of --expr, --url, --code, --time")
			}

			c, err := buildCore(cfg, t)
			if err != nil {
				return err
			}

			// Capture the run so its recorded results can be printed once
			// the instance terminates; the wiring itself stays the default.
			var run *workflow.Run
			runner, err := workflow.NewRunner(workflow.Config{
				UserID:   userID,
				Tiers:    c.tiers,
				Registry: c.registry,
				Reader:   c.reader,
				Sandbox:  c.sandbox,
				Factory:  workflow.PlanFactory,
				BuildInvoker: func(r *workflow.Run) (*tools.Invoker, error) {
					run = r
					return tools.NewInvoker(c.registry, tools.BuiltinHandlers(tools.BuiltinDeps{
						Reader: c.reader,
						Code:   workflow.RunCodeRunner{Run: r},
					}))
				},
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			runner.Start(ctx)
			if !runner.Send(workflow.Message{Type: workflow.MsgStartWorkflow, Payload: plan}) {
				return fmt.Errorf("workflow instance terminated before start")
			}

			var outcome workflow.ResponseType
			for resp := range runner.Responses() {
				fmt.Printf("→ %s\n", resp.Type)
				if resp.Type == workflow.RespWorkflowAborted {
					if data, ok := resp.Data.(map[string]any); ok {
						if msg, ok := data["error"].(string); ok {
							fmt.Printf("  error: %s\n", msg)
						}
					}
				}
				outcome = resp.Type
			}
			runner.Wait()

			if run != nil {
				printResults(run.Results())
			}
			if outcome == workflow.RespWorkflowAborted {
				return fmt.Errorf("workflow aborted")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user ID to run as")
	cmd.Flags().StringVar(&tierName, "tier", "free", "subscription tier of the user")
	cmd.Flags().StringArrayVar(&exprs, "expr", nil, "arithmetic expression to evaluate (repeatable)")
	cmd.Flags().StringArrayVar(&urls, "url", nil, "web page to read as markdown (repeatable)")
	cmd.Flags().StringVar(&code, "code", "", "code to run in a remote sandbox (plus tier)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "run the plan steps concurrently")
	cmd.Flags().BoolVar(&showTime, "time", false, "include a current_time step")
	return cmd
}

func buildPlan(exprs, urls []string, code string, showTime, parallel bool) workflow.Plan {
	var plan workflow.Plan
	plan.Parallel = parallel

	for _, e := range exprs {
		plan.Steps = append(plan.Steps, workflow.ToolCall{
			Tool: tools.ToolCalculator,
			Args: map[string]any{"expression": e},
		})
	}
	if showTime {
		plan.Steps = append(plan.Steps, workflow.ToolCall{Tool: tools.ToolCurrentTime})
	}
	if len(urls) > 0 {
		// One web_read step; the reader fans out over the URLs itself.
		anyURLs := make([]any, len(urls))
		for i, u := range urls {
			anyURLs[i] = u
		}
		plan.Steps = append(plan.Steps, workflow.ToolCall{
			Tool: tools.ToolWebRead,
			Args: map[string]any{"urls": anyURLs},
		})
	}
	if code != "" {
		plan.Steps = append(plan.Steps, workflow.ToolCall{
			Tool: tools.ToolCodeExecute,
			Args: map[string]any{"code": code},
		})
	}
	return plan
}

func printResults(results []*tools.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Println(strings.Repeat("─", 50))
	for i, res := range results {
		fmt.Printf("[%d] %s (%dms)\n", i+1, res.ToolID, res.DurationMs)
		if res.Err != nil {
			fmt.Printf("    error: %v\n", res.Err)
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(res.Output, "\n"), "\n") {
			fmt.Printf("    %s\n", line)
		}
	}
	fmt.Println(strings.Repeat("─", 50))
}

package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chatnerd/internal/quota"
	"chatnerd/internal/sandbox"
	"chatnerd/internal/tier"
	"chatnerd/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echoClient is an in-process sandbox transport for workflow tests.
type echoClient struct {
	execBlocks bool // Execute blocks until its context is canceled
	closeCalls int
}

func (c *echoClient) Connect(ctx context.Context) (string, error) {
	return "remote-test", nil
}

func (c *echoClient) Execute(ctx context.Context, remoteID, code string) (sandbox.Output, error) {
	if c.execBlocks {
		<-ctx.Done()
		return sandbox.Output{}, ctx.Err()
	}
	return sandbox.Output{Stdout: "ok: " + code}, nil
}

func (c *echoClient) Close(ctx context.Context, remoteID string) error {
	c.closeCalls++
	return nil
}

type harness struct {
	runner  *Runner
	client  *echoClient
	sandbox *sandbox.Manager
}

func newHarness(t *testing.T, factory Factory) *harness {
	t.Helper()

	client := &echoClient{}
	q := quota.New(quota.NewMemoryStore(), tier.Static(tier.Plus), quota.Config{
		DailyLimit: 100,
		MinTier:    tier.Plus,
	})
	sm := sandbox.New(client, q, sandbox.Config{
		ExecTimeout:     time.Second,
		TeardownTimeout: 100 * time.Millisecond,
	})

	registry, err := tools.NewRegistry(tools.BuiltinCatalogue()...)
	require.NoError(t, err)

	r, err := NewRunner(Config{
		UserID:   "u1",
		Tiers:    tier.Static(tier.Plus),
		Registry: registry,
		Sandbox:  sm,
		Factory:  factory,
	})
	require.NoError(t, err)

	return &harness{runner: r, client: client, sandbox: sm}
}

// expect reads the next response within a deadline.
func expect(t *testing.T, r *Runner) Response {
	t.Helper()
	select {
	case resp, ok := <-r.Responses():
		require.True(t, ok, "response channel closed early")
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
		return Response{}
	}
}

func blockingFactory(payload any) (RunFunc, error) {
	return func(ctx context.Context, run *Run) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil
}

func TestStartThenStop(t *testing.T) {
	h := newHarness(t, func(payload any) (RunFunc, error) {
		return func(ctx context.Context, run *Run) error {
			if _, err := run.RunCode(ctx, "print(1)"); err != nil {
				return err
			}
			<-ctx.Done()
			return ctx.Err()
		}, nil
	})
	h.runner.Start(context.Background())

	payload := map[string]any{"x": 1}
	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow, Payload: payload}))

	started := expect(t, h.runner)
	assert.Equal(t, RespWorkflowStarted, started.Type)
	assert.Equal(t, payload, started.Data, "WORKFLOW_STARTED echoes the start payload")

	// Let the run acquire its session before stopping.
	require.Eventually(t, func() bool {
		return h.runner.run.Session() != nil
	}, time.Second, 5*time.Millisecond)
	sess := h.runner.run.Session()

	require.True(t, h.runner.Send(Message{Type: MsgStopWorkflow}))
	stopped := expect(t, h.runner)
	assert.Equal(t, RespWorkflowStopped, stopped.Type)

	h.runner.Wait()
	assert.False(t, sess.Active(), "no sandbox session may stay active after STOP")
	assert.Equal(t, sandbox.StateClosed, sess.State())
	assert.Equal(t, 1, h.client.closeCalls)
	assert.Equal(t, StateStopped, h.runner.state)
}

func TestUnknownMessageEchoesAndKeepsLoopAlive(t *testing.T) {
	h := newHarness(t, blockingFactory)
	h.runner.Start(context.Background())

	ping := Message{Type: "PING", Data: map[string]any{"seq": 7}}
	require.True(t, h.runner.Send(ping))

	resp := expect(t, h.runner)
	assert.Equal(t, RespUnknownMessage, resp.Type)
	assert.Equal(t, ping, resp.Data, "UNKNOWN_MESSAGE echoes the original message")

	// The loop survived; a normal lifecycle still works.
	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow}))
	assert.Equal(t, RespWorkflowStarted, expect(t, h.runner).Type)
	require.True(t, h.runner.Send(Message{Type: MsgStopWorkflow}))
	assert.Equal(t, RespWorkflowStopped, expect(t, h.runner).Type)
	h.runner.Wait()
}

func TestAbortMidToolCall(t *testing.T) {
	h := newHarness(t, func(payload any) (RunFunc, error) {
		return func(ctx context.Context, run *Run) error {
			_, err := run.RunCode(ctx, "while True: pass")
			return err
		}, nil
	})
	h.client.execBlocks = true
	h.runner.Start(context.Background())

	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow}))
	require.Equal(t, RespWorkflowStarted, expect(t, h.runner).Type)

	require.Eventually(t, func() bool {
		return h.runner.run.Session() != nil
	}, time.Second, 5*time.Millisecond)
	sess := h.runner.run.Session()

	abortPayload := map[string]any{"reason": "user_cancel"}
	require.True(t, h.runner.Send(Message{Type: MsgAbortWorkflow, Payload: abortPayload}))

	aborted := expect(t, h.runner)
	assert.Equal(t, RespWorkflowAborted, aborted.Type)
	assert.Equal(t, abortPayload, aborted.Data)

	h.runner.Wait()
	assert.Equal(t, sandbox.StateClosed, sess.State(), "abort still releases the session")
	assert.Equal(t, StateAborted, h.runner.state)
}

func TestAbortFromIdle(t *testing.T) {
	h := newHarness(t, blockingFactory)
	h.runner.Start(context.Background())

	require.True(t, h.runner.Send(Message{Type: MsgAbortWorkflow, Payload: "nothing running"}))
	aborted := expect(t, h.runner)
	assert.Equal(t, RespWorkflowAborted, aborted.Type)
	assert.Equal(t, "nothing running", aborted.Data)
	h.runner.Wait()
}

func TestHandlerPanicBecomesAbortedOutcome(t *testing.T) {
	h := newHarness(t, func(payload any) (RunFunc, error) {
		return func(ctx context.Context, run *Run) error {
			if _, err := run.RunCode(ctx, "x"); err != nil {
				return err
			}
			panic("handler bug")
		}, nil
	})
	h.runner.Start(context.Background())

	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow}))
	require.Equal(t, RespWorkflowStarted, expect(t, h.runner).Type)

	aborted := expect(t, h.runner)
	assert.Equal(t, RespWorkflowAborted, aborted.Type)
	data, ok := aborted.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["error"], "panic")

	h.runner.Wait()
	assert.Equal(t, 1, h.client.closeCalls, "panic path still releases the session")
}

func TestNaturalCompletionStops(t *testing.T) {
	h := newHarness(t, func(payload any) (RunFunc, error) {
		return func(ctx context.Context, run *Run) error {
			res, err := run.InvokeTool(ctx, tools.ToolCalculator, map[string]any{"expression": "2+2"})
			if err != nil {
				return err
			}
			if res.Output != "4" {
				return errors.New("unexpected calculator output")
			}
			return nil
		}, nil
	})
	h.runner.Start(context.Background())

	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow}))
	assert.Equal(t, RespWorkflowStarted, expect(t, h.runner).Type)
	assert.Equal(t, RespWorkflowStopped, expect(t, h.runner).Type)
	h.runner.Wait()

	results := h.runner.run.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "4", results[0].Output)
}

func TestSecondStartWhileRunningIsUnknown(t *testing.T) {
	h := newHarness(t, blockingFactory)
	h.runner.Start(context.Background())

	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow}))
	require.Equal(t, RespWorkflowStarted, expect(t, h.runner).Type)

	second := Message{Type: MsgStartWorkflow, Payload: "again"}
	require.True(t, h.runner.Send(second))
	resp := expect(t, h.runner)
	assert.Equal(t, RespUnknownMessage, resp.Type)
	assert.Equal(t, second, resp.Data)

	require.True(t, h.runner.Send(Message{Type: MsgStopWorkflow}))
	assert.Equal(t, RespWorkflowStopped, expect(t, h.runner).Type)
	h.runner.Wait()
}

func TestStopWhileIdleIsUnknown(t *testing.T) {
	h := newHarness(t, blockingFactory)
	h.runner.Start(context.Background())

	stop := Message{Type: MsgStopWorkflow}
	require.True(t, h.runner.Send(stop))
	resp := expect(t, h.runner)
	assert.Equal(t, RespUnknownMessage, resp.Type)

	require.True(t, h.runner.Send(Message{Type: MsgAbortWorkflow}))
	assert.Equal(t, RespWorkflowAborted, expect(t, h.runner).Type)
	h.runner.Wait()
}

func TestFactoryErrorAbortsBeforeExecution(t *testing.T) {
	h := newHarness(t, func(payload any) (RunFunc, error) {
		return nil, errors.New("malformed payload")
	})
	h.runner.Start(context.Background())

	require.True(t, h.runner.Send(Message{Type: MsgStartWorkflow, Payload: "garbage"}))
	resp := expect(t, h.runner)
	assert.Equal(t, RespWorkflowAborted, resp.Type)
	h.runner.Wait()
	assert.Equal(t, 0, h.client.closeCalls, "nothing was provisioned")
}

func TestFreeTierCannotExecuteCode(t *testing.T) {
	client := &echoClient{}
	q := quota.New(quota.NewMemoryStore(), tier.Static(tier.Free), quota.Config{
		DailyLimit: 100,
		MinTier:    tier.Plus,
	})
	sm := sandbox.New(client, q, sandbox.Config{})
	registry, err := tools.NewRegistry(tools.BuiltinCatalogue()...)
	require.NoError(t, err)

	r, err := NewRunner(Config{
		UserID:   "free-user",
		Tiers:    tier.Static(tier.Free),
		Registry: registry,
		Sandbox:  sm,
		Factory: func(payload any) (RunFunc, error) {
			return func(ctx context.Context, run *Run) error {
				_, err := run.InvokeTool(ctx, tools.ToolCodeExecute, map[string]any{"code": "x"})
				if !errors.Is(err, tools.ErrToolAccessDenied) {
					return errors.New("expected access denial")
				}
				return nil
			}, nil
		},
	})
	require.NoError(t, err)
	r.Start(context.Background())

	require.True(t, r.Send(Message{Type: MsgStartWorkflow}))
	assert.Equal(t, RespWorkflowStarted, expect(t, r).Type)
	assert.Equal(t, RespWorkflowStopped, expect(t, r).Type, "denial is not a run failure")
	r.Wait()
	assert.Equal(t, 0, client.closeCalls, "no sandbox was ever provisioned")
}

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/model"
)

// Observer receives one callback per executed tool call.
type Observer interface {
	ObserveToolCall(toolID string, success bool, elapsed time.Duration)
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	Logger logging.Logger
	// MaxParallel bounds concurrent calls in a batch. 0 means unbounded.
	MaxParallel int
	// Timeout bounds a single invocation. 0 means no timeout.
	Timeout  time.Duration
	Observer Observer
}

// Executor runs tools from a Registry and normalizes every outcome into a Result.
// Execute never returns a nil Result and never panics.
type Executor struct {
	registry *Registry
	opts     ExecutorOptions
}

// NewExecutor creates an Executor bound to registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Executor{registry: registry, opts: opts}
}

// Registry returns the underlying registry.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute looks up, validates and invokes a tool. The result always carries
// execution_time_ms and tool_id metadata.
func (e *Executor) Execute(ctx context.Context, toolID string, params map[string]any, cfg Config) *Result {
	start := time.Now()
	res := e.execute(ctx, toolID, params, cfg)
	return e.finish(res, toolID, start)
}

func (e *Executor) execute(ctx context.Context, toolID string, params map[string]any, cfg Config) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			e.opts.Logger.Error("tool.execute.panic", "tool_id", toolID, "recover", r)
			res = NewFailure("tool panicked: %v", r).WithMetadata(MetaErrorType, "panic")
		}
	}()

	t, ok := e.registry.Instantiate(toolID, cfg)
	if !ok {
		return NewFailure("tool not found: %s", toolID)
	}
	desc := t.Descriptor()
	if d, ok := e.registry.Descriptor(toolID); ok && d.Disabled {
		return NewFailure("tool disabled: %s", toolID)
	}

	params = applyDefaults(desc.Parameters, params)
	if err := ValidateParameters(desc.Parameters, params); err != nil {
		e.opts.Logger.Warn("tool.execute.validation_failed", "tool_id", toolID, "error", err.Error())
		return NewFailure("%s", err.Error())
	}

	if err := ctx.Err(); err != nil {
		return NewFailure("%s", err.Error()).WithMetadata(MetaErrorType, errorType(err))
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	e.opts.Logger.Debug("tool.execute.start", "tool_id", toolID)
	e.registry.recordUse(toolID)

	out, err := invoke(ctx, t, params)
	if err != nil {
		if pe, ok := err.(*panicErr); ok {
			e.opts.Logger.Error("tool.execute.panic", "tool_id", toolID, "recover", pe.val, "stack", string(pe.stack))
			return NewFailure("tool panicked: %v", pe.val).WithMetadata(MetaErrorType, "panic")
		}
		e.opts.Logger.Error("tool.execute.error", "tool_id", toolID, "error", err.Error())
		return NewFailure("%s", err.Error()).WithMetadata(MetaErrorType, errorType(err))
	}
	if out == nil {
		return NewSuccess(nil)
	}
	return out
}

func (e *Executor) finish(res *Result, toolID string, start time.Time) *Result {
	elapsed := time.Since(start)
	res = res.normalize()
	res.Metadata[MetaExecutionTimeMS] = math.Round(float64(elapsed.Microseconds())/10) / 100
	res.Metadata[MetaToolID] = toolID

	if e.opts.Observer != nil {
		e.opts.Observer.ObserveToolCall(toolID, res.Success, elapsed)
	}
	e.opts.Logger.Info("tool.execute.finished",
		"tool_id", toolID,
		"success", res.Success,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res
}

// ExecuteCall runs a provider-native tool call. The call type must be
// "function" and the arguments a JSON object. The call id is copied into
// the tool_call_id metadata.
func (e *Executor) ExecuteCall(ctx context.Context, call model.ToolCall, cfg Config) *Result {
	start := time.Now()
	toolID := call.Function.Name

	var res *Result
	switch {
	case call.Type != "function":
		res = e.finish(NewFailure("unsupported tool call type: %q", call.Type), toolID, start)
	default:
		args, err := parseArguments(call.Function.Arguments)
		if err != nil {
			res = e.finish(NewFailure("invalid arguments: %v", err), toolID, start)
		} else {
			res = e.Execute(ctx, toolID, args, cfg)
		}
	}

	return res.WithMetadata(MetaToolCallID, call.ID)
}

// Call is one entry of a batch.
type Call struct {
	ToolID     string         `json:"tool_id"`
	Parameters map[string]any `json:"parameters"`
	Config     Config         `json:"config,omitempty"`
}

// BatchExecute runs calls concurrently. Results are returned in call order
// and one failing call never affects the others.
func (e *Executor) BatchExecute(ctx context.Context, calls []Call) []*Result {
	return e.runConcurrent(len(calls), func(i int) *Result {
		return e.Execute(ctx, calls[i].ToolID, calls[i].Parameters, calls[i].Config)
	})
}

// ExecuteCalls runs provider-native tool calls concurrently, preserving call
// order. configs maps tool ids to their instance configuration.
func (e *Executor) ExecuteCalls(ctx context.Context, calls []model.ToolCall, configs map[string]Config) []*Result {
	return e.runConcurrent(len(calls), func(i int) *Result {
		return e.ExecuteCall(ctx, calls[i], configs[calls[i].Function.Name])
	})
}

func (e *Executor) runConcurrent(n int, fn func(i int) *Result) []*Result {
	results := make([]*Result, n)
	if n == 0 {
		return results
	}
	if n == 1 {
		results[0] = fn(0)
		return results
	}

	batchStart := time.Now()

	var g errgroup.Group
	if e.opts.MaxParallel > 0 {
		g.SetLimit(e.opts.MaxParallel)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()

	e.opts.Logger.Debug("tool.batch.complete",
		"count", n,
		"parallelism", e.opts.MaxParallel,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
	return results
}

func parseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func invoke(ctx context.Context, t Tool, params map[string]any) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return t.Execute(ctx, params)
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// errorType names the concrete type of err without package or pointer prefix.
func errorType(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return fmt.Sprintf("%T", err)
}

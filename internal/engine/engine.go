// Package engine executes hosted-module JavaScript inside a goja VM wired
// to a sandbox's handles. The module source runs as the body of a wrapper
// function receiving window/self/globalThis/document parameters, so every
// global and document access the module performs is routed through the
// sandbox's interception layers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/logging"
	"github.com/SCWR/qiankun/internal/sandbox"
)

// Config defines engine configuration.
type Config struct {
	Timeout       time.Duration // Execution timeout
	EnableConsole bool          // Allow console.log/warn/error
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
	}
}

// LogEntry records hosted console output.
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// Engine runs one hosted module against one sandbox.
type Engine struct {
	vm        *goja.Runtime
	sb        *sandbox.Sandbox
	handle    *goja.Object
	docHandle *goja.Object
	cfg       Config
	log       *logging.Logger

	mu        sync.Mutex
	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates an engine over an existing sandbox. Each hosted module gets
// its own VM; platform built-ins (Math, JSON, String...) come from the VM,
// everything reachable through window or document goes through the sandbox.
func New(sb *sandbox.Sandbox, cfg Config, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	e := &Engine{
		vm:  goja.New(),
		sb:  sb,
		cfg: cfg,
		log: log,
	}
	e.handle = e.vm.NewDynamicObject(&globalAdapter{e})
	e.docHandle = e.vm.NewDynamicObject(&documentAdapter{e})
	e.setupGlobals()
	return e
}

// Sandbox returns the sandbox this engine executes against.
func (e *Engine) Sandbox() *sandbox.Sandbox { return e.sb }

// Execute runs module source with timeout and cancellation. The return
// value is whatever the module body returns, exported to Go.
func (e *Engine) Execute(ctx context.Context, src string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-timer.C:
			e.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			e.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()
	defer e.vm.ClearInterrupt()

	wrapped := "(function(window, self, globalThis, document){\n" + src + "\n})"
	v, err := e.vm.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("module wrapper is not callable")
	}

	res, err := fn(e.handle, e.handle, e.handle, e.handle, e.docHandle)
	if err != nil {
		return nil, fmt.Errorf("execute module %q: %w", e.sb.Name(), err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, nil
	}
	return res.Export(), nil
}

// Console returns the hosted module's collected console output.
func (e *Engine) Console() []LogEntry {
	e.consoleMu.Lock()
	defer e.consoleMu.Unlock()
	return append([]LogEntry{}, e.console...)
}

// setupGlobals neuters host-environment escape hatches and installs console.
func (e *Engine) setupGlobals() {
	e.vm.Set("require", goja.Undefined())
	e.vm.Set("process", goja.Undefined())
	e.vm.Set("module", goja.Undefined())
	e.vm.Set("exports", goja.Undefined())

	if e.cfg.EnableConsole {
		console := e.vm.NewObject()
		console.Set("log", e.makeConsoleFunc("log"))
		console.Set("warn", e.makeConsoleFunc("warn"))
		console.Set("error", e.makeConsoleFunc("error"))
		console.Set("info", e.makeConsoleFunc("info"))
		e.vm.Set("console", console)
	}
}

func (e *Engine) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		e.consoleMu.Lock()
		e.console = append(e.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		e.consoleMu.Unlock()

		e.log.Debug("hosted console",
			zap.String("sandbox", e.sb.Name()),
			zap.String("level", level),
			zap.String("message", msg))
		return goja.Undefined()
	}
}

package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SCWR/qiankun/internal/document"
	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/sandbox"
)

func newTestEngine(t *testing.T, name string, shared *global.Object, doc *sandbox.DocumentProxy) *Engine {
	t.Helper()
	if doc == nil {
		doc = sandbox.NewDocumentProxy(document.NewRoot(), nil, nil)
	}
	sb := sandbox.New(name, shared, doc)
	sb.Activate()
	t.Cleanup(sb.Deactivate)
	return New(sb, DefaultConfig(), nil)
}

func TestAliasIdentity(t *testing.T) {
	e := newTestEngine(t, "a", global.Platform(), nil)

	v, err := e.Execute(context.Background(), `
		return window === self && window === globalThis && window === window.top;
	`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v != true {
		t.Errorf("alias identity = %v, want true", v)
	}
}

func TestGlobalWriteAndRead(t *testing.T) {
	e := newTestEngine(t, "a", global.Platform(), nil)

	v, err := e.Execute(context.Background(), `
		window.answer = 42;
		return window.answer;
	`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v != int64(42) {
		t.Errorf("answer = %v (%T), want 42", v, v)
	}
}

func TestModuleIsolation(t *testing.T) {
	shared := global.Platform()
	a := newTestEngine(t, "a", shared, nil)
	b := newTestEngine(t, "b", shared, nil)

	if _, err := a.Execute(context.Background(), `window.counter = 1;`); err != nil {
		t.Fatalf("a failed: %v", err)
	}

	v, err := b.Execute(context.Background(), `return typeof window.counter;`)
	if err != nil {
		t.Fatalf("b failed: %v", err)
	}
	if v != "undefined" {
		t.Errorf("b sees a's write: typeof = %v", v)
	}

	v, err = a.Execute(context.Background(), `return window.counter;`)
	if err != nil {
		t.Fatalf("a re-read failed: %v", err)
	}
	if v != int64(1) {
		t.Errorf("a lost its write: %v", v)
	}
}

func TestHostedOwnershipCheck(t *testing.T) {
	e := newTestEngine(t, "a", global.Platform(), nil)

	v, err := e.Execute(context.Background(), `
		window.mine = true;
		return [window.hasOwnProperty('mine'), window.hasOwnProperty('navigator'), window.hasOwnProperty('missing')];
	`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	got, ok := v.([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("result = %v", v)
	}
	if got[0] != true || got[1] != true || got[2] != false {
		t.Errorf("hasOwnProperty results = %v, want [true true false]", got)
	}
}

func TestDocumentAttribution(t *testing.T) {
	shared := global.Platform()
	doc := sandbox.NewDocumentProxy(document.NewRoot(), nil, nil)
	a := newTestEngine(t, "app-a", shared, doc)
	b := newTestEngine(t, "app-b", shared, doc)

	script := `
		var el = window.document.createElement('script');
		return el.owner;
	`

	v, err := a.Execute(context.Background(), script)
	if err != nil {
		t.Fatalf("a failed: %v", err)
	}
	if v != "app-a" {
		t.Errorf("a's element owner = %v, want app-a", v)
	}

	v, err = b.Execute(context.Background(), script)
	if err != nil {
		t.Fatalf("b failed: %v", err)
	}
	if v != "app-b" {
		t.Errorf("b's element owner = %v, want app-b", v)
	}
}

func TestRebindingThroughJS(t *testing.T) {
	e := newTestEngine(t, "a", global.Platform(), nil)

	// btoa comes off the shared global as a function; the handle rebinds it
	// so it executes against the real global.
	v, err := e.Execute(context.Background(), `return window.btoa('ok');`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v != "b2s=" {
		t.Errorf("btoa = %v, want b2s=", v)
	}
}

func TestConsoleCapture(t *testing.T) {
	e := newTestEngine(t, "a", global.Platform(), nil)

	if _, err := e.Execute(context.Background(), `console.log('hello', 'world');`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	entries := e.Console()
	if len(entries) != 1 || entries[0].Message != "hello world" || entries[0].Level != "log" {
		t.Errorf("console entries = %v", entries)
	}
}

func TestExecuteTimeout(t *testing.T) {
	shared := global.Platform()
	doc := sandbox.NewDocumentProxy(document.NewRoot(), nil, nil)
	sb := sandbox.New("spin", shared, doc)
	sb.Activate()
	defer sb.Deactivate()

	e := New(sb, Config{Timeout: 100 * time.Millisecond, EnableConsole: true}, nil)
	_, err := e.Execute(context.Background(), `while (true) {}`)
	if err == nil {
		t.Fatal("runaway script should be interrupted")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("unexpected interrupt reason: %v", err)
	}
}

func TestCompileError(t *testing.T) {
	e := newTestEngine(t, "a", global.Platform(), nil)

	if _, err := e.Execute(context.Background(), `this is not javascript`); err == nil {
		t.Error("syntax error should surface")
	}
}

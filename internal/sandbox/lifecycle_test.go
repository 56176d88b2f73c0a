package sandbox

import (
	"testing"

	"github.com/SCWR/qiankun/internal/document"
)

type recordingSuppressor struct {
	writes    []string
	teardowns []bool
}

func (r *recordingSuppressor) OnWrite(key string, _ any) {
	r.writes = append(r.writes, key)
}

func (r *recordingSuppressor) Teardown(_ *Proxy, lastActive bool) {
	r.teardowns = append(r.teardowns, lastActive)
}

func TestActivateIdempotent(t *testing.T) {
	sb := newTestSandbox(t, "a", sharedForTest())

	before := ActiveCount()
	sb.Activate()
	sb.Activate()
	if got := ActiveCount(); got != before+1 {
		t.Errorf("double activate incremented counter twice: %d -> %d", before, got)
	}
	if !sb.Running() {
		t.Error("sandbox should be running")
	}

	sb.Deactivate()
	if sb.Running() {
		t.Error("sandbox should be inactive")
	}
	if got := ActiveCount(); got != before {
		t.Errorf("counter not restored: %d -> %d", before, got)
	}
}

func TestLastActiveLatch(t *testing.T) {
	shared := sharedForTest()
	doc := NewDocumentProxy(document.NewRoot(), nil, nil)
	ra := &recordingSuppressor{}
	rb := &recordingSuppressor{}
	a := New("a", shared, doc, WithNoiseSuppressor(ra))
	b := New("b", shared, doc, WithNoiseSuppressor(rb))

	a.Activate()
	b.Activate()

	a.Deactivate()
	if len(ra.teardowns) != 1 || ra.teardowns[0] != false {
		t.Errorf("a's teardown lastActive = %v, want [false]", ra.teardowns)
	}

	b.Deactivate()
	if len(rb.teardowns) != 1 || rb.teardowns[0] != true {
		t.Errorf("b's teardown lastActive = %v, want [true]", rb.teardowns)
	}
}

func TestWriteNotifiesSuppressor(t *testing.T) {
	rec := &recordingSuppressor{}
	shared := sharedForTest()
	doc := NewDocumentProxy(document.NewRoot(), nil, nil)
	sb := New("a", shared, doc, WithNoiseSuppressor(rec))
	sb.Activate()
	defer sb.Deactivate()

	sb.Global().Set("k", 1)
	if len(rec.writes) != 1 || rec.writes[0] != "k" {
		t.Errorf("suppressor writes = %v, want [k]", rec.writes)
	}
}

// Overlay state survives the sandbox's own deactivate/activate cycle. This
// is documented resumption behavior: a remounted module sees the globals it
// left behind, while a freshly constructed sandbox always starts from a new
// snapshot.
func TestOverlayPersistsAcrossReactivation(t *testing.T) {
	shared := sharedForTest()
	sb := newTestSandbox(t, "a", shared)

	sb.Activate()
	sb.Global().Set("session", "resumed")
	sb.Deactivate()

	sb.Activate()
	defer sb.Deactivate()
	if v, _ := sb.Global().Get("session"); v != "resumed" {
		t.Errorf("overlay did not survive reactivation: %v", v)
	}

	fresh := newTestSandbox(t, "fresh", shared)
	if v, ok := fresh.Global().Get("session"); ok {
		t.Errorf("fresh sandbox inherited overlay state: %v", v)
	}
}

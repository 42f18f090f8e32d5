package textmodel

import (
	"context"
	"testing"

	"pkt.systems/mongoui/core"
	"pkt.systems/mongoui/schema"
)

func TestHostTracksLiveModels(t *testing.T) {
	host := NewHost()
	a := host.CreateModel("a", core.LanguageScript)
	b := host.CreateModel("b", core.LanguageResult)
	if host.Live() != 2 {
		t.Fatalf("expected 2 live models, got %d", host.Live())
	}
	a.Dispose()
	a.Dispose()
	if host.Live() != 1 {
		t.Fatalf("expected 1 live model, got %d", host.Live())
	}
	a.SetValue("changed")
	if a.Value() != "a" {
		t.Fatalf("disposed model accepted a write")
	}
	if b.(*Model).Language() != core.LanguageResult {
		t.Fatalf("unexpected language")
	}
}

func TestViewNotifiesChanges(t *testing.T) {
	calls := 0
	view := NewView(func() { calls++ })
	host := NewHost()
	model := host.CreateModel("x", core.LanguageScript)
	view.SetInputModel(model)
	view.SetOutputModel(nil)
	if calls != 2 {
		t.Fatalf("expected 2 callbacks, got %d", calls)
	}
	if view.InputText() != "x" || view.OutputText() != "" {
		t.Fatalf("unexpected view text %q %q", view.InputText(), view.OutputText())
	}
}

func TestWorkspaceReleasesModels(t *testing.T) {
	host := NewHost()
	view := NewView(nil)
	ws, err := core.NewWorkspace(schema.WorkspaceConfig{}, core.WorkspaceDeps{Host: host, View: view})
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	ctx := context.Background()
	for _, target := range []schema.TargetName{"a", "b", "c"} {
		if _, err := ws.OpenBuffer(ctx, schema.OpenBufferRequest{Target: target, Collection: "orders"}); err != nil {
			t.Fatalf("open: %v", err)
		}
	}
	if view.InputText() != `db.getCollection("orders").find({})` {
		t.Fatalf("unexpected input %q", view.InputText())
	}
	ws.Close()
	if host.Live() != 0 {
		t.Fatalf("expected all models released, %d live", host.Live())
	}
	if view.Input() != nil || view.Output() != nil {
		t.Fatalf("expected cleared view")
	}
}

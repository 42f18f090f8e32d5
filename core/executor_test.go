package core

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/mongoui/schema"
)

func TestOrdersScenario(t *testing.T) {
	backend := &fakeBackend{
		payload: []byte(`[{"_id":{"$oid":"507f1f77bcf86cd799439011"},"total":42}]`),
	}
	client, err := NewExecutionClient(backend, "conn-1", nil)
	if err != nil {
		t.Fatalf("new execution client: %v", err)
	}
	fx := newWorkspaceFixture(t)
	fx.ws.SetExecutor(client)

	resp, err := fx.ws.OpenBuffer(context.Background(), schema.OpenBufferRequest{Target: "shop", Collection: "orders"})
	if err != nil {
		t.Fatalf("open buffer: %v", err)
	}
	if _, err := fx.ws.Run(context.Background(), resp.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := "[\n    {\n        \"_id\": ObjectId(\"507f1f77bcf86cd799439011\"),\n        \"total\": 42\n    }\n]"
	_, output := fx.view.models()
	if output == nil || output.Value() != want {
		t.Fatalf("unexpected output view:\n%v", output)
	}
	if len(backend.execReqs) != 1 {
		t.Fatalf("expected one backend call, got %d", len(backend.execReqs))
	}
	req := backend.execReqs[0]
	if req.ConnectionID != "conn-1" || req.Database != "shop" || req.Script != `db.getCollection("orders").find({})` {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestExecuteBackendErrorKeepsMessage(t *testing.T) {
	backend := &fakeBackend{execErr: errors.New("ReferenceError: foo is not defined")}
	client, err := NewExecutionClient(backend, "conn-1", nil)
	if err != nil {
		t.Fatalf("new execution client: %v", err)
	}
	_, err = client.Execute(context.Background(), "foo", "shop")
	var execErr *schema.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if execErr.Message != "ReferenceError: foo is not defined" || execErr.Op != "exec" {
		t.Fatalf("unexpected error %+v", execErr)
	}
}

func TestExecuteDecodeError(t *testing.T) {
	backend := &fakeBackend{payload: []byte(`{not json`)}
	client, err := NewExecutionClient(backend, "conn-1", nil)
	if err != nil {
		t.Fatalf("new execution client: %v", err)
	}
	_, err = client.Execute(context.Background(), "x", "shop")
	var execErr *schema.ExecutionError
	if !errors.As(err, &execErr) || execErr.Op != "decode" {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNewExecutionClientValidates(t *testing.T) {
	if _, err := NewExecutionClient(nil, "c", nil); !errors.Is(err, schema.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
	if _, err := NewExecutionClient(&fakeBackend{}, "", nil); !errors.Is(err, schema.ErrNotConnected) {
		t.Fatalf("expected not connected, got %v", err)
	}
}

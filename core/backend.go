package core

import (
	"context"

	"pkt.systems/mongoui/schema"
)

// Backend is the command interface of the database backend. Every call may
// block on the network.
type Backend interface {
	Connect(ctx context.Context, req schema.ConnectRequest) (schema.ConnectResponse, error)
	ListSaved(ctx context.Context) ([]schema.SavedConnection, error)
	ConnectSaved(ctx context.Context, req schema.ConnectSavedRequest) (schema.ConnectResponse, error)
	ListCollections(ctx context.Context, req schema.ListCollectionsRequest) ([]schema.CollectionName, error)
	ExecScript(ctx context.Context, req schema.ExecScriptRequest) (schema.ExecScriptResponse, error)
}

// Executor runs a script against a target and returns rendered text.
type Executor interface {
	Execute(ctx context.Context, script string, target schema.TargetName) (string, error)
}

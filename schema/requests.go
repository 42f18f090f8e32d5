package schema

// Backend commands.

// ConnectRequest opens a connection. When Save is set the connection string is
// stored under SaveName, which must then be non-empty.
type ConnectRequest struct {
	URI      string
	Save     bool
	SaveName string
}

// ConnectResponse reports the new connection and its database names.
type ConnectResponse struct {
	ConnectionID ConnectionID
	Databases    []TargetName
}

// ConnectSavedRequest opens a connection from a saved profile.
type ConnectSavedRequest struct {
	ID SavedConnectionID
}

// ListCollectionsRequest lists collection names of a database.
type ListCollectionsRequest struct {
	ConnectionID ConnectionID
	Database     TargetName
}

// ExecScriptRequest runs a script against a database.
type ExecScriptRequest struct {
	ConnectionID ConnectionID
	Database     TargetName
	Script       string
}

// ExecScriptResponse carries the relaxed extended-JSON encoded result value.
type ExecScriptResponse struct {
	Payload []byte
}

// Workspace transitions.

// OpenBufferRequest asks the workspace for a new buffer. When Seed is empty
// and Collection is set, the workspace seed template is used.
type OpenBufferRequest struct {
	Target     TargetName
	Collection CollectionName
	Seed       string
}

// OpenBufferResponse reports the new buffer.
type OpenBufferResponse struct {
	ID     BufferID
	Labels []TabLabel
}

// WorkspaceSnapshot is a read-only view of the workspace state.
type WorkspaceSnapshot struct {
	Labels   []TabLabel
	Selected BufferID
	Outputs  int
}

// RunResult reports how a completed execution was delivered.
type RunResult struct {
	Buffer BufferID
	Output string
	// Delivered is false when the buffer was closed before the result arrived.
	Delivered bool
	// Shown is true when the buffer was still selected at completion.
	Shown bool
}

package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pkt.systems/mongoui/core"
	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/internal/version"
	"pkt.systems/mongoui/schema"
)

// Workspace is the subset of core.Workspace the commands drive.
type Workspace interface {
	OpenBuffer(ctx context.Context, req schema.OpenBufferRequest) (schema.OpenBufferResponse, error)
	SelectBuffer(ctx context.Context, id schema.BufferID) error
	SelectRelative(ctx context.Context, delta int) (schema.BufferID, error)
	CloseBuffer(ctx context.Context, id schema.BufferID) error
	Run(ctx context.Context, id schema.BufferID) (schema.RunResult, error)
	Selected() schema.BufferID
	Labels() []schema.TabLabel
}

// Navigator is the subset of core.NavigationTree the commands drive.
type Navigator interface {
	Expand(ctx context.Context, db schema.TargetName) error
	Nodes() []core.TreeNode
}

// Connector opens connections for the connection commands.
type Connector interface {
	Connect(ctx context.Context, req schema.ConnectRequest) (schema.ConnectResponse, error)
	ConnectSaved(ctx context.Context, id schema.SavedConnectionID) (schema.ConnectResponse, error)
	ListSaved(ctx context.Context) ([]schema.SavedConnection, error)
}

// Result reports what a handled command did.
type Result struct {
	Message string
	Quit    bool
	Run     *schema.RunResult
}

// Handler routes slash commands to workspace operations.
type Handler struct {
	ws   Workspace
	nav  func() Navigator
	conn Connector
}

// Option configures a Handler.
type Option func(*Handler)

// WithConnector enables /connect, /saved and /use.
func WithConnector(conn Connector) Option {
	return func(h *Handler) { h.conn = conn }
}

// NewHandler constructs a command handler. nav returns the navigation tree of
// the current connection, or nil when disconnected.
func NewHandler(ws Workspace, nav func() Navigator, opts ...Option) *Handler {
	if nav == nil {
		nav = func() Navigator { return nil }
	}
	h := &Handler{ws: ws, nav: nav}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle inspects input and executes slash commands. The bool reports whether
// input was a command.
func (h *Handler) Handle(ctx context.Context, input string) (Result, bool, error) {
	if ctx == nil {
		return Result{}, false, errors.New("missing context")
	}
	cmd, ok := Parse(input)
	if !ok {
		return Result{}, false, nil
	}
	log := logx.WithBuffer(ctx, h.ws.Selected()).With("command", cmd.Name, "args", len(cmd.Args))
	log.Info("command slash request")
	var (
		res Result
		err error
	)
	switch cmd.Name {
	case "":
		err = fmt.Errorf("invalid command")
	case "open", "o":
		res, err = h.handleOpen(ctx, cmd)
	case "run", "r":
		res, err = h.handleRun(ctx)
	case "close", "c":
		res, err = h.handleClose(ctx, cmd)
	case "next", "n":
		res, err = h.handleCycle(ctx, 1)
	case "prev", "p":
		res, err = h.handleCycle(ctx, -1)
	case "tabs":
		res = h.handleTabs()
	case "expand", "e":
		res, err = h.handleExpand(ctx, cmd)
	case "connect":
		res, err = h.handleConnect(ctx, cmd)
	case "saved":
		res, err = h.handleSaved(ctx)
	case "use":
		res, err = h.handleUse(ctx, cmd)
	case "help", "h":
		res = Result{Message: helpText}
	case "version":
		res = Result{Message: "mongoui " + version.Current()}
	case "quit", "q":
		res = Result{Quit: true}
	default:
		err = fmt.Errorf("unknown command: /%s", cmd.Name)
	}
	if err != nil {
		log.Warn("command slash failed", "err", err)
	}
	return res, true, err
}

const helpText = `/connect <uri> [name]    connect, saving the profile as name
/saved                   list saved connections
/use <id>                connect with a saved connection
/open <db> [collection]  open a buffer
/run                     run the selected buffer
/close [buffer]          close the selected or given buffer
/next, /prev             cycle buffers
/tabs                    list buffers
/expand <db>             list the collections of a database
/version                 show version
/quit                    exit`

func (h *Handler) handleOpen(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) < 1 || len(cmd.Args) > 2 {
		return Result{}, fmt.Errorf("usage: /open <db> [collection]")
	}
	req := schema.OpenBufferRequest{Target: schema.TargetName(cmd.Args[0])}
	if len(cmd.Args) == 2 {
		req.Collection = schema.CollectionName(cmd.Args[1])
	}
	resp, err := h.ws.OpenBuffer(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("opened %s on %s", resp.ID, req.Target)}, nil
}

func (h *Handler) handleRun(ctx context.Context) (Result, error) {
	id := h.ws.Selected()
	if id == 0 {
		return Result{}, schema.ErrNoBuffers
	}
	res, err := h.ws.Run(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Run: &res}, nil
}

func (h *Handler) handleClose(ctx context.Context, cmd Command) (Result, error) {
	id := h.ws.Selected()
	if len(cmd.Args) > 0 {
		parsed, err := parseBufferID(cmd.Args[0])
		if err != nil {
			return Result{}, err
		}
		id = parsed
	}
	if id == 0 {
		return Result{}, schema.ErrNoBuffers
	}
	if err := h.ws.CloseBuffer(ctx, id); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("closed %s", id)}, nil
}

func (h *Handler) handleCycle(ctx context.Context, delta int) (Result, error) {
	if _, err := h.ws.SelectRelative(ctx, delta); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func (h *Handler) handleTabs() Result {
	labels := h.ws.Labels()
	if len(labels) == 0 {
		return Result{Message: "no buffers"}
	}
	lines := make([]string, 0, len(labels))
	for _, label := range labels {
		marker := " "
		if label.Selected {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", marker, label.ID, label.Name))
	}
	return Result{Message: strings.Join(lines, "\n")}
}

func (h *Handler) handleExpand(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) != 1 {
		return Result{}, fmt.Errorf("usage: /expand <db>")
	}
	nav := h.nav()
	if nav == nil {
		return Result{}, schema.ErrNotConnected
	}
	db := schema.TargetName(cmd.Args[0])
	if err := nav.Expand(ctx, db); err != nil {
		return Result{}, err
	}
	for _, node := range nav.Nodes() {
		if node.Name != string(db) {
			continue
		}
		names := make([]string, 0, len(node.Children))
		for _, child := range node.Children {
			names = append(names, child.Name)
		}
		if len(names) == 0 {
			return Result{Message: fmt.Sprintf("%s has no collections", db)}, nil
		}
		return Result{Message: fmt.Sprintf("%s: %s", db, strings.Join(names, ", "))}, nil
	}
	return Result{}, schema.ErrTargetNotFound
}

func (h *Handler) handleConnect(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) < 1 {
		return Result{}, fmt.Errorf("usage: /connect <uri> [name]")
	}
	if h.conn == nil {
		return Result{}, schema.ErrBackendUnavailable
	}
	name := strings.Join(cmd.Args[1:], " ")
	resp, err := h.conn.Connect(ctx, schema.ConnectRequest{URI: cmd.Args[0], Save: name != "", SaveName: name})
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("connected, %d databases", len(resp.Databases))
	if name != "" {
		msg += fmt.Sprintf(", saved as %q", name)
	}
	return Result{Message: msg}, nil
}

func (h *Handler) handleSaved(ctx context.Context) (Result, error) {
	if h.conn == nil {
		return Result{}, schema.ErrBackendUnavailable
	}
	saved, err := h.conn.ListSaved(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(saved) == 0 {
		return Result{Message: "no saved connections"}, nil
	}
	lines := make([]string, 0, len(saved))
	for _, profile := range saved {
		lines = append(lines, fmt.Sprintf("%d %s", profile.ID, profile.Name))
	}
	return Result{Message: strings.Join(lines, "\n")}, nil
}

func (h *Handler) handleUse(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) != 1 {
		return Result{}, fmt.Errorf("usage: /use <id>")
	}
	if h.conn == nil {
		return Result{}, schema.ErrBackendUnavailable
	}
	n, err := strconv.ParseInt(cmd.Args[0], 10, 64)
	if err != nil || n <= 0 {
		return Result{}, fmt.Errorf("invalid saved connection id %q", cmd.Args[0])
	}
	resp, err := h.conn.ConnectSaved(ctx, schema.SavedConnectionID(n))
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("connected to saved #%d, %d databases", n, len(resp.Databases))}, nil
}

func parseBufferID(arg string) (schema.BufferID, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(arg), "b")
	n, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid buffer id %q", arg)
	}
	return schema.BufferID(n), nil
}

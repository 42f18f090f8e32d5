package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/mongoui/internal/logx"
	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

// Workspace owns the open buffers, the selection and the editor view. All
// transitions are applied under mu; script execution happens outside it.
type Workspace struct {
	cfg    schema.WorkspaceConfig
	host   EditorHost
	view   EditorView
	exec   Executor
	sink   EventSink
	logger pslog.Logger

	mu       sync.Mutex
	store    *bufferStore
	selected schema.BufferID
	ids      idSequence
}

// NewWorkspace constructs an empty workspace.
func NewWorkspace(cfg schema.WorkspaceConfig, deps WorkspaceDeps) (*Workspace, error) {
	normalized, err := schema.NormalizeWorkspaceConfig(cfg)
	if err != nil {
		return nil, schema.NewConfigurationError("workspace", err)
	}
	if deps.Host == nil {
		return nil, errors.New("editor host is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Workspace{
		cfg:    normalized,
		host:   deps.Host,
		view:   deps.View,
		exec:   deps.Executor,
		sink:   deps.EventSink,
		logger: logger,
		store:  newBufferStore(),
	}, nil
}

// SetExecutor replaces the executor used by Run. A nil executor makes Run
// fail with schema.ErrNotConnected.
func (w *Workspace) SetExecutor(exec Executor) {
	w.mu.Lock()
	w.exec = exec
	w.mu.Unlock()
}

// OpenBuffer appends a buffer bound to req.Target and selects it.
func (w *Workspace) OpenBuffer(ctx context.Context, req schema.OpenBufferRequest) (schema.OpenBufferResponse, error) {
	if ctx == nil {
		return schema.OpenBufferResponse{}, errors.New("missing context")
	}
	target, err := schema.NormalizeTargetName(string(req.Target))
	if err != nil {
		return schema.OpenBufferResponse{}, err
	}
	seed := req.Seed
	if seed == "" && strings.TrimSpace(string(req.Collection)) != "" {
		seed = fmt.Sprintf(w.cfg.SeedTemplate, req.Collection)
	}

	w.mu.Lock()
	id := w.ids.next()
	record := &bufferRecord{
		id:     id,
		target: target,
		input:  w.host.CreateModel(seed, LanguageScript),
	}
	w.store.add(record)
	w.selected = id
	w.showLocked(record)
	labels := w.labelsLocked()
	w.mu.Unlock()

	logx.WithTarget(w.log(ctx, id), target).Info("workspace buffer opened", "collection", req.Collection)
	w.emit(schema.WorkspaceEvent{Type: schema.EventBufferOpened, Buffer: id, Selected: id, Labels: labels})
	return schema.OpenBufferResponse{ID: id, Labels: labels}, nil
}

// SelectBuffer makes id the selected buffer and shows its models.
func (w *Workspace) SelectBuffer(ctx context.Context, id schema.BufferID) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	w.mu.Lock()
	record := w.store.get(id)
	if record == nil {
		w.mu.Unlock()
		return schema.ErrBufferNotFound
	}
	w.selected = id
	w.showLocked(record)
	labels := w.labelsLocked()
	w.mu.Unlock()

	w.log(ctx, id).Debug("workspace buffer selected")
	w.emit(schema.WorkspaceEvent{Type: schema.EventBufferSelected, Buffer: id, Selected: id, Labels: labels})
	return nil
}

// SelectRelative moves the selection delta positions along the tab order,
// wrapping at both ends.
func (w *Workspace) SelectRelative(ctx context.Context, delta int) (schema.BufferID, error) {
	if ctx == nil {
		return 0, errors.New("missing context")
	}
	w.mu.Lock()
	count := w.store.len()
	if count == 0 {
		w.mu.Unlock()
		return 0, schema.ErrNoBuffers
	}
	idx := w.store.index(w.selected)
	if idx < 0 {
		idx = 0
	}
	next := ((idx+delta)%count + count) % count
	id := w.store.at(next).id
	w.mu.Unlock()
	return id, w.SelectBuffer(ctx, id)
}

// CloseBuffer removes id and disposes its models. When the closed buffer was
// selected, its predecessor becomes selected, or the last remaining buffer
// when it was the first.
func (w *Workspace) CloseBuffer(ctx context.Context, id schema.BufferID) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	w.mu.Lock()
	if w.store.get(id) == nil {
		w.mu.Unlock()
		return schema.ErrBufferNotFound
	}
	var closed []*bufferRecord
	if w.store.len() == 1 {
		closed = w.store.clear()
		w.selected = 0
		w.showLocked(nil)
	} else {
		idx, record := w.store.remove(id)
		closed = []*bufferRecord{record}
		if w.selected == id {
			next := w.store.at(idx - 1)
			if next == nil {
				next = w.store.last()
			}
			w.selected = next.id
			w.showLocked(next)
		}
	}
	for _, record := range closed {
		record.dispose()
	}
	selected := w.selected
	labels := w.labelsLocked()
	w.mu.Unlock()

	w.log(ctx, id).Info("workspace buffer closed", "selected", selected.String())
	w.emit(schema.WorkspaceEvent{Type: schema.EventBufferClosed, Buffer: id, Selected: selected, Labels: labels})
	return nil
}

// Run executes the script of buffer id against its target and binds the
// rendered result to the buffer's output. A result that arrives after the
// buffer was closed is dropped; the output view only switches when the buffer
// is still selected.
func (w *Workspace) Run(ctx context.Context, id schema.BufferID) (schema.RunResult, error) {
	if ctx == nil {
		return schema.RunResult{}, errors.New("missing context")
	}
	w.mu.Lock()
	record := w.store.get(id)
	if record == nil {
		w.mu.Unlock()
		return schema.RunResult{}, schema.ErrBufferNotFound
	}
	script := record.input.Value()
	target := record.target
	exec := w.exec
	timeout := w.cfg.ExecTimeout
	w.mu.Unlock()

	log := logx.WithTarget(w.log(ctx, id), target)
	if exec == nil {
		w.notify(id, schema.ErrNotConnected)
		return schema.RunResult{}, schema.ErrNotConnected
	}

	log.Info("workspace run start", "script_len", len(script))
	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	text, err := exec.Execute(runCtx, script, target)
	cancel()
	if err != nil {
		var execErr *schema.ExecutionError
		if !errors.As(err, &execErr) {
			err = schema.NewExecutionError("execute", err)
		}
		log.Warn("workspace run failed", "err", err, "duration", time.Since(started))
		w.notify(id, err)
		return schema.RunResult{}, err
	}

	w.mu.Lock()
	record = w.store.get(id)
	if record == nil {
		w.mu.Unlock()
		log.Info("workspace run result dropped", "reason", "buffer closed", "duration", time.Since(started))
		return schema.RunResult{Buffer: id, Output: text}, nil
	}
	if record.output == nil {
		record.output = w.host.CreateModel(text, LanguageResult)
	} else {
		record.output.SetValue(text)
	}
	shown := w.selected == id
	if shown && w.view != nil {
		w.view.SetOutputModel(record.output)
	}
	selected := w.selected
	labels := w.labelsLocked()
	w.mu.Unlock()

	log.Info("workspace run finished", "shown", shown, "duration", time.Since(started))
	w.emit(schema.WorkspaceEvent{Type: schema.EventOutputUpdated, Buffer: id, Selected: selected, Labels: labels})
	return schema.RunResult{Buffer: id, Output: text, Delivered: true, Shown: shown}, nil
}

// Labels returns the tab strip in insertion order.
func (w *Workspace) Labels() []schema.TabLabel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.labelsLocked()
}

// Selected returns the selected buffer, or zero when the workspace is empty.
func (w *Workspace) Selected() schema.BufferID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

// Snapshot returns a consistent read-only view of the workspace.
func (w *Workspace) Snapshot() schema.WorkspaceSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return schema.WorkspaceSnapshot{
		Labels:   w.labelsLocked(),
		Selected: w.selected,
		Outputs:  w.store.outputs(),
	}
}

// Input returns the input model of id.
func (w *Workspace) Input(id schema.BufferID) (TextModel, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	record := w.store.get(id)
	if record == nil {
		return nil, schema.ErrBufferNotFound
	}
	return record.input, nil
}

// Output returns the output text of id and whether the buffer has run
// successfully at least once.
func (w *Workspace) Output(id schema.BufferID) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	record := w.store.get(id)
	if record == nil {
		return "", false, schema.ErrBufferNotFound
	}
	model := record.outputModel()
	if model == nil {
		return "", false, nil
	}
	return model.Value(), true, nil
}

// Target returns the database buffer id is bound to.
func (w *Workspace) Target(id schema.BufferID) (schema.TargetName, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	record := w.store.get(id)
	if record == nil {
		return "", schema.ErrBufferNotFound
	}
	return record.target, nil
}

// Close disposes every open buffer and clears the view.
func (w *Workspace) Close() {
	w.mu.Lock()
	closed := w.store.clear()
	w.selected = 0
	w.showLocked(nil)
	for _, record := range closed {
		record.dispose()
	}
	w.mu.Unlock()
	w.logger.Debug("workspace closed", "buffers", len(closed))
}

func (w *Workspace) showLocked(record *bufferRecord) {
	if w.view == nil {
		return
	}
	if record == nil {
		w.view.SetInputModel(nil)
		w.view.SetOutputModel(nil)
		return
	}
	w.view.SetInputModel(record.input)
	w.view.SetOutputModel(record.outputModel())
}

func (w *Workspace) labelsLocked() []schema.TabLabel {
	return w.store.labels(w.selected, w.cfg.LabelMax, w.cfg.LabelSuffix)
}

func (w *Workspace) log(ctx context.Context, id schema.BufferID) pslog.Logger {
	return logx.WithBuffer(ctx, id)
}

func (w *Workspace) notify(id schema.BufferID, err error) {
	w.emit(schema.WorkspaceEvent{
		Type:    schema.EventNotice,
		Buffer:  id,
		Level:   schema.NoticeError,
		Message: err.Error(),
	})
}

func (w *Workspace) emit(event schema.WorkspaceEvent) {
	if w.sink == nil {
		return
	}
	w.sink.OnWorkspaceEvent(event)
}

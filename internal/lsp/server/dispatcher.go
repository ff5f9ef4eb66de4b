package server

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/engine/table"
	"symbolicator/internal/lsp/transport"
	"symbolicator/internal/shared/util"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Options tune what the dispatcher advertises and when it schedules passes.
type Options struct {
	Name    string
	Version string
	// DefinitionsAndReferences enables textDocument/definition and
	// textDocument/references.
	DefinitionsAndReferences bool
	// TriggerOnChange schedules a pass on every didChange, not only on save.
	TriggerOnChange bool
	CompletionLimit int
}

// Dispatcher implements transport.Handler.
type Dispatcher struct {
	projects Projects
	docs     Documents
	tables   Tables
	opts     Options
	logger   *slog.Logger

	mu           sync.Mutex
	shutdown     bool
	shutdownDone bool
}

var _ transport.Handler = (*Dispatcher)(nil)

func NewDispatcher(projects Projects, docs Documents, tables Tables, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "symbolicator"
	}
	return &Dispatcher{
		projects: projects,
		docs:     docs,
		tables:   tables,
		opts:     opts,
		logger:   logger,
	}
}

// ShutdownReceived reports whether the client sent shutdown before exit.
func (d *Dispatcher) ShutdownReceived() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdownDone
}

func (d *Dispatcher) context(ctx context.Context) *Context {
	return &Context{
		Ctx:             ctx,
		Logger:          d.logger,
		Buffers:         d.docs,
		Workspace:       d.projects,
		Tables:          d.tables,
		CompletionLimit: d.opts.CompletionLimit,
	}
}

func (d *Dispatcher) Handle(ctx context.Context, raw *transport.Request) (any, error) {
	req := &Request{Method: raw.Method, Params: raw.Params}

	d.mu.Lock()
	closing := d.shutdown
	d.mu.Unlock()
	if closing && req.Method != protocol.MethodExit {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "server is shutting down"), errors.CtxMethod, req.Method)
	}

	switch req.Method {
	case protocol.MethodInitialize:
		return d.initialize(req)
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodShutdown:
		return nil, d.shutdownAll(ctx)
	case protocol.MethodExit:
		return nil, transport.ErrExit

	case protocol.MethodTextDocumentCompletion:
		return OnCompletionRequest(d.context(ctx), req)
	case protocol.MethodTextDocumentDefinition:
		if !d.opts.DefinitionsAndReferences {
			return nil, unsupported(req.Method)
		}
		return OnGotoDefinitionRequest(d.context(ctx), req, d.snapshotFor(req))
	case protocol.MethodTextDocumentReferences:
		if !d.opts.DefinitionsAndReferences {
			return nil, unsupported(req.Method)
		}
		return OnReferencesRequest(d.context(ctx), req, d.snapshotFor(req))

	case protocol.MethodTextDocumentDidOpen:
		return nil, d.didOpen(req)
	case protocol.MethodTextDocumentDidChange:
		return nil, d.didChange(req)
	case protocol.MethodTextDocumentDidClose:
		return nil, d.didClose(req)
	case protocol.MethodTextDocumentDidSave:
		return nil, d.didSave(req)
	case protocol.MethodWorkspaceDidChangeWorkspaceFolders:
		return nil, d.didChangeWorkspaceFolders(ctx, req)
	}

	if strings.HasPrefix(req.Method, "$/") {
		return nil, nil
	}
	return nil, unsupported(req.Method)
}

func unsupported(method string) error {
	return errors.AddContext(errors.New(errors.CodeNotSupported, "method not supported"), errors.CtxMethod, method)
}

// snapshotFor reads the committed table of the project owning the request's
// document, once. Undecodable params get the empty table and fail later in
// the handler with a decode error.
func (d *Dispatcher) snapshotFor(req *Request) *table.Table {
	var params protocol.TextDocumentPositionParams
	if err := decodeParams(req, &params); err != nil {
		return table.Empty()
	}
	project, ok := d.projects.ProjectFor(util.URIToPath(params.TextDocument.URI))
	if !ok {
		return table.Empty()
	}
	return d.tables.Get(project)
}

func (d *Dispatcher) initialize(req *Request) (any, error) {
	var params protocol.InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	for _, root := range initialRoots(&params) {
		if err := d.projects.OpenProject(root); err != nil {
			d.logger.Warn("open project failed", "project", root, "error", err)
		}
	}

	yes := true
	full := protocol.TextDocumentSyncKindFull
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &yes,
			Change:    &full,
			Save:      true,
		},
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: []string{"."},
		},
		Workspace: &protocol.ServerCapabilitiesWorkspace{
			WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
				Supported:           &yes,
				ChangeNotifications: &protocol.BoolOrString{Value: true},
			},
		},
	}
	if d.opts.DefinitionsAndReferences {
		caps.DefinitionProvider = true
		caps.ReferencesProvider = true
	}

	info := &protocol.InitializeResultServerInfo{Name: d.opts.Name}
	if d.opts.Version != "" {
		version := d.opts.Version
		info.Version = &version
	}
	return protocol.InitializeResult{Capabilities: caps, ServerInfo: info}, nil
}

func initialRoots(params *protocol.InitializeParams) []string {
	roots := make([]string, 0, len(params.WorkspaceFolders))
	for _, folder := range params.WorkspaceFolders {
		if path := util.URIToPath(folder.URI); path != "" {
			roots = append(roots, path)
		}
	}
	if len(roots) > 0 {
		return roots
	}
	if params.RootURI != nil && *params.RootURI != "" {
		return []string{util.URIToPath(*params.RootURI)}
	}
	if params.RootPath != nil && *params.RootPath != "" {
		return []string{util.URIToPath(*params.RootPath)}
	}
	return nil
}

func (d *Dispatcher) shutdownAll(ctx context.Context) error {
	d.mu.Lock()
	d.shutdown = true
	d.mu.Unlock()

	err := d.projects.Shutdown(ctx)

	d.mu.Lock()
	d.shutdownDone = true
	d.mu.Unlock()
	return err
}

func (d *Dispatcher) didOpen(req *Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	path := util.URIToPath(params.TextDocument.URI)
	d.docs.Open(path, params.TextDocument.Version, []byte(params.TextDocument.Text))
	return nil
}

func (d *Dispatcher) didChange(req *Request) error {
	var params didChangeParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	path := util.URIToPath(params.TextDocument.URI)
	current, _ := d.docs.Get(path)
	content := applyChanges(current, params.ContentChanges)
	if !d.docs.Update(path, params.TextDocument.Version, content) {
		d.logger.Debug("ignoring stale document change", "path", path, "version", params.TextDocument.Version)
		return nil
	}
	if d.opts.TriggerOnChange {
		d.trigger(path)
	}
	return nil
}

func (d *Dispatcher) didClose(req *Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	path := util.URIToPath(params.TextDocument.URI)
	d.docs.Close(path)
	// The analyzer falls back to disk for this file from now on.
	d.trigger(path)
	return nil
}

func (d *Dispatcher) didSave(req *Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	path := util.URIToPath(params.TextDocument.URI)
	if params.Text != nil {
		version, _ := d.docs.Version(path)
		d.docs.Update(path, version, []byte(*params.Text))
	}
	d.trigger(path)
	return nil
}

func (d *Dispatcher) didChangeWorkspaceFolders(ctx context.Context, req *Request) error {
	var params protocol.DidChangeWorkspaceFoldersParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	for _, folder := range params.Event.Removed {
		root := util.URIToPath(folder.URI)
		if err := d.projects.CloseProject(ctx, root); err != nil {
			d.logger.Warn("close project failed", "project", root, "error", err)
		}
	}
	for _, folder := range params.Event.Added {
		root := util.URIToPath(folder.URI)
		if err := d.projects.OpenProject(root); err != nil {
			d.logger.Warn("open project failed", "project", root, "error", err)
		}
	}
	return nil
}

func (d *Dispatcher) trigger(path string) {
	if project, ok := d.projects.ProjectFor(path); ok {
		d.projects.Trigger(project)
	}
}

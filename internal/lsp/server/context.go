// Package server routes LSP requests to the symbol table and the workspace.
//
// Query handlers read a committed snapshot and return; they never wait for a
// recomputation pass. Document notifications update the open-buffer store and
// schedule passes through the workspace without blocking.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/table"
)

// Tables serves the committed snapshot of a project.
type Tables interface {
	Get(root string) *table.Table
}

// Documents is the editable side of the open-buffer store.
type Documents interface {
	ports.BufferStore
	Open(path string, version int32, content []byte)
	Update(path string, version int32, content []byte) bool
	Close(path string)
	Version(path string) (int32, bool)
}

// Projects owns the per-project workers.
type Projects interface {
	ports.Workspace
	OpenProject(root string) error
	CloseProject(ctx context.Context, root string) error
	Shutdown(ctx context.Context) error
}

// Context carries what a handler may touch while answering one request.
type Context struct {
	Ctx             context.Context
	Logger          *slog.Logger
	Buffers         ports.BufferStore
	Workspace       ports.Workspace
	Tables          Tables
	CompletionLimit int
}

func (c *Context) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Request is the method and raw parameters of one JSON-RPC message.
type Request struct {
	Method string
	Params json.RawMessage
}

func decodeParams(req *Request, out any) error {
	if req == nil || len(req.Params) == 0 {
		return errors.AddContext(errors.New(errors.CodeDecode, "missing params"), errors.CtxMethod, methodOf(req))
	}
	if err := json.Unmarshal(req.Params, out); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeDecode, "decode params"), errors.CtxMethod, req.Method)
	}
	return nil
}

func methodOf(req *Request) string {
	if req == nil {
		return ""
	}
	return req.Method
}

package app

import (
	"context"
	"time"

	"symbolicator/internal/shared/util"
)

type ProjectStatus struct {
	Root      string    `json:"root"`
	State     string    `json:"state"`
	Running   bool      `json:"running"`
	Passes    uint64    `json:"passes"`
	Coalesced uint64    `json:"coalesced"`
	Symbols   int       `json:"symbols"`
	BuiltAt   time.Time `json:"built_at,omitempty"`
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Projects   []ProjectStatus   `json:"projects"`
	QueueDepth int               `json:"queue_depth"`
	Superseded uint64            `json:"queue_superseded"`
	Buffers    int               `json:"open_buffers"`
	Components map[string]string `json:"components"`
	Runtime    util.RuntimeStats `json:"runtime"`
}

// Status reports the state of every open project. It never waits on a pass.
func (a *App) Status(_ context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Projects:   []ProjectStatus{},
		QueueDepth: a.Queue.Len(),
		Superseded: a.Queue.Superseded(),
		Buffers:    len(a.Buffers.Paths()),
		Components: make(map[string]string),
		Runtime:    util.ReadRuntimeStats(),
	}

	for _, root := range a.Projects() {
		w, ok := a.Worker(root)
		if !ok {
			continue
		}
		ps := ProjectStatus{
			Root:      root,
			State:     w.State().String(),
			Running:   w.Running(),
			Passes:    w.Passes(),
			Coalesced: w.Coalesced(),
		}
		if tbl, ok := a.Store.Lookup(root); ok {
			ps.Symbols = tbl.Len()
			ps.BuiltAt = tbl.BuiltAt()
		}
		status.Projects = append(status.Projects, ps)
	}

	if a.Config.Symbolication.IsEnabled() {
		status.Components["symbolication"] = "ok"
	} else {
		status.Components["symbolication"] = "disabled"
	}

	switch {
	case a.journal != nil:
		status.Components["history"] = "ok"
	case a.Config.History.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	switch {
	case a.watcher != nil:
		status.Components["watcher"] = "ok"
	case a.Config.Symbolication.IsEnabled() && a.Config.Watch.IsEnabled():
		status.Status = "degraded"
		status.Components["watcher"] = "missing but enabled in config"
	default:
		status.Components["watcher"] = "disabled"
	}

	return status
}

package app

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
	"symbolicator/internal/core/worker"
	"symbolicator/internal/shared/observability"
	"symbolicator/internal/shared/util"
)

func normalizeRoot(root string) (string, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return "", errors.New(errors.CodeValidationError, "project root must not be empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve project root"), errors.CtxProject, root)
	}
	return filepath.Clean(abs), nil
}

// OpenProject starts a worker for root and schedules its first pass. Opening
// an open project is a no-op. With symbolication disabled the project gets an
// idle worker that never runs.
func (a *App) OpenProject(root string) error {
	clean, err := normalizeRoot(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.AddContext(errors.New(errors.CodeNotFound, "project root not found"), errors.CtxProject, clean)
		}
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat project root"), errors.CtxProject, clean)
	}
	if !info.IsDir() {
		return errors.AddContext(errors.New(errors.CodeValidationError, "project root is not a directory"), errors.CtxProject, clean)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return errors.New(errors.CodeConflict, "app is closed")
	}
	if _, ok := a.workers[clean]; ok {
		a.mu.Unlock()
		return nil
	}
	if _, ok := a.closing[clean]; ok {
		a.mu.Unlock()
		return errors.AddContext(errors.New(errors.CodeConflict, "project is still closing"), errors.CtxProject, clean)
	}
	w := a.spawn(clean)
	a.workers[clean] = w
	observability.OpenProjects.Set(float64(len(a.workers)))
	a.mu.Unlock()

	a.logger.Info("project opened", "project", clean, "state", w.State().String())
	if a.watcher != nil && w.State() != worker.StateIdle {
		if err := a.watcher.Watch([]string{clean}); err != nil {
			a.logger.Warn("watch project failed", "project", clean, "error", err)
		}
	}
	w.Trigger()
	return nil
}

func (a *App) spawn(root string) *worker.Worker {
	if !a.Config.Symbolication.IsEnabled() {
		return worker.Idle()
	}
	opts := []worker.Option{worker.WithLogger(a.logger)}
	if a.journal != nil {
		opts = append(opts, worker.WithJournal(a.journal))
	}
	if a.onPass != nil {
		opts = append(opts, worker.WithPassHook(a.onPass))
	}
	return worker.Spawn(root, a.Store, a.Queue, a.analyzer, opts...)
}

// OpenConfiguredProjects opens every root listed under [projects].
func (a *App) OpenConfiguredProjects() error {
	var errs []error
	for _, root := range a.Config.Projects.Roots {
		if err := a.OpenProject(root); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// CloseProject quits the project's worker and waits for it, bounded by ctx.
// Once the worker has exited, a close marker goes through the diagnostics
// queue so the publisher clears the project after its last outcome. Until
// then the root stays reserved and reopening it is a conflict. The last
// committed table stays in the store.
func (a *App) CloseProject(ctx context.Context, root string) error {
	clean, err := normalizeRoot(root)
	if err != nil {
		return err
	}

	a.mu.Lock()
	w, ok := a.workers[clean]
	if ok {
		delete(a.workers, clean)
		a.closing[clean] = w
	}
	observability.OpenProjects.Set(float64(len(a.workers)))
	a.mu.Unlock()
	if !ok {
		return errors.AddContext(errors.New(errors.CodeNotFound, "project not open"), errors.CtxProject, clean)
	}

	if a.watcher != nil {
		a.watcher.Unwatch(clean)
	}
	if err := w.Quit(ctx); err != nil {
		a.logger.Warn("project worker still running", "project", clean, "error", err)
		go func() {
			<-w.Done()
			a.projectClosed(clean, w)
		}()
		return err
	}
	a.projectClosed(clean, w)
	return nil
}

// projectClosed queues the close marker behind the exited worker's final
// outcome, then releases the root. The marker goes first so it can never
// overwrite an outcome of a reopened project.
func (a *App) projectClosed(root string, w *worker.Worker) {
	if err := a.Queue.Deliver(ports.Outcome{Project: root, Closed: true}); err != nil {
		a.logger.Debug("close marker dropped", "project", root, "error", err)
	}

	a.mu.Lock()
	if a.closing[root] == w {
		delete(a.closing, root)
	}
	a.mu.Unlock()
	a.logger.Info("project closed", "project", root)
}

// Shutdown quits every worker and waits for all of them.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	workers := a.workers
	a.workers = make(map[string]*worker.Worker)
	for root, w := range a.closing {
		workers[root] = w
	}
	observability.OpenProjects.Set(0)
	a.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for root, w := range workers {
		wg.Add(1)
		go func(root string, w *worker.Worker) {
			defer wg.Done()
			if err := w.Quit(ctx); err != nil {
				mu.Lock()
				errs = append(errs, errors.AddContext(err, errors.CtxProject, root))
				mu.Unlock()
			}
		}(root, w)
	}
	wg.Wait()
	return stderrors.Join(errs...)
}

// ProjectFor returns the innermost open project containing path.
func (a *App) ProjectFor(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "", false
	}
	clean := filepath.Clean(path)

	a.mu.Lock()
	defer a.mu.Unlock()
	best := ""
	for root := range a.workers {
		if len(root) > len(best) && util.HasPathPrefix(clean, root) {
			best = root
		}
	}
	return best, best != ""
}

// Trigger schedules a pass for an open project. Unknown roots are ignored.
func (a *App) Trigger(root string) {
	clean, err := normalizeRoot(root)
	if err != nil {
		return
	}
	a.mu.Lock()
	w, ok := a.workers[clean]
	a.mu.Unlock()
	if ok {
		w.Trigger()
	}
}

// HandleChanges triggers, once each, the projects owning the changed paths.
func (a *App) HandleChanges(paths []string) {
	projects := make(map[string]bool)
	for _, path := range paths {
		if root, ok := a.ProjectFor(path); ok {
			projects[root] = true
		}
	}
	for _, root := range util.SortedStringKeys(projects) {
		a.logger.Debug("files changed", "project", root)
		a.Trigger(root)
	}
}

// Projects lists the open project roots in sorted order.
func (a *App) Projects() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return util.SortedStringKeys(a.workers)
}

// Worker returns the worker of an open project.
func (a *App) Worker(root string) (*worker.Worker, bool) {
	clean, err := normalizeRoot(root)
	if err != nil {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.workers[clean]
	return w, ok
}

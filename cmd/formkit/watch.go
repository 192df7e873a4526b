package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/dlovans/formkit/pkg/formkit"
	"github.com/dlovans/formkit/pkg/lint"
	"github.com/dlovans/formkit/pkg/log"
)

// handleWatch reloads the schema at path on every write and prints its lint
// report plus the values a fresh runtime starts with. It returns when ctx is
// cancelled.
func handleWatch(ctx context.Context, w io.Writer, logger log.Logger, path string) error {
	if path == "" {
		return fmt.Errorf("-file is required")
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reload(w, logger, path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("schema changed", "path", path, "op", event.Op.String())
			reload(w, logger, path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "path", path, "err", err)
		}
	}
}

// reload prints the report for one version of the schema. Failures are
// reported and the watch goes on.
func reload(w io.Writer, logger log.Logger, path string) {
	fmt.Fprintf(w, "--- %s\n", path)

	schema, err := formkit.LoadSchemaFile(path)
	if err != nil {
		logger.Warn("schema reload failed", "path", path, "err", err)
		fmt.Fprintf(w, "✗ %v\n", err)
		return
	}

	result := lint.Check(schema)
	printIssues(w, result)
	if !result.Valid {
		return
	}

	rt := formkit.NewRuntime(schema, formkit.WithLogger(logger))
	if err := writeJSON(w, rt.Snapshot().Values); err != nil {
		logger.Warn("print values failed", "err", err)
	}
}

// Package loader watches a directory and feeds settled files into the
// ingestion pipeline. Polling is used instead of inotify so the watcher works
// on network mounts where change events are unreliable.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docai/rag"
	"docai/types"
)

const pollInterval = 1 * time.Second

// Watcher tracks files appearing in the watch directory. A file is handed to
// the ingester only after it has stopped growing for the settle duration, so
// partially copied files are never parsed.
type Watcher struct {
	cfg     types.Config
	service *rag.Service

	mu         sync.Mutex
	firstSeen  map[string]time.Time
	processing map[string]bool
}

func NewWatcher(cfg types.Config, service *rag.Service) (*Watcher, error) {
	if err := createDirectories(cfg.WatchDir, cfg.ArchiveDir, cfg.BadDir); err != nil {
		return nil, fmt.Errorf("failed to create watch directories: %w", err)
	}
	return &Watcher{
		cfg:        cfg,
		service:    service,
		firstSeen:  make(map[string]time.Time),
		processing: make(map[string]bool),
	}, nil
}

// Run polls until the context is cancelled. Each settled file is ingested and
// moved to the archive directory, or to the bad directory when ingestion
// fails.
func (w *Watcher) Run(ctx context.Context) {
	slog.Info("start monitoring folder", "dir", w.cfg.WatchDir)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("file watcher stopped")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	files, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		slog.Error("error reading watch directory", "dir", w.cfg.WatchDir, "error", err)
		return
	}

	current := make(map[string]bool, len(files))

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		path := filepath.Join(w.cfg.WatchDir, file.Name())
		current[path] = true

		w.mu.Lock()
		if w.processing[path] {
			w.mu.Unlock()
			continue
		}
		seen, exists := w.firstSeen[path]
		if !exists {
			w.firstSeen[path] = time.Now()
			w.mu.Unlock()
			slog.Info("new file detected", "file", path)
			continue
		}
		if time.Since(seen) < w.cfg.WatchSettle {
			w.mu.Unlock()
			continue
		}
		w.processing[path] = true
		w.mu.Unlock()

		w.ingest(ctx, path, file.Name())
	}

	// Drop tracking for files that disappeared from the directory.
	w.mu.Lock()
	for path := range w.firstSeen {
		if !current[path] {
			delete(w.firstSeen, path)
			delete(w.processing, path)
		}
	}
	w.mu.Unlock()
}

func (w *Watcher) ingest(ctx context.Context, path, filename string) {
	defer func() {
		w.mu.Lock()
		delete(w.firstSeen, path)
		delete(w.processing, path)
		w.mu.Unlock()
	}()

	result := w.service.IngestDocument(ctx, path, filename)
	if result.Success {
		slog.Info("watched file ingested", "file", filename, "chunks", result.ChunksEmbedded)
		w.moveTo(path, w.cfg.ArchiveDir)
		return
	}

	slog.Error("watched file ingestion failed", "file", filename, "error", result.Error)
	w.moveTo(path, w.cfg.BadDir)
}

// moveTo files into a per-date subdirectory, suffixing the name on conflicts.
// Copy plus remove instead of rename so cross-device moves work.
func (w *Watcher) moveTo(path, destRoot string) {
	destDir := filepath.Join(destRoot, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		slog.Error("error creating destination directory", "dir", destDir, "error", err)
		return
	}

	destPath := filepath.Join(destDir, filepath.Base(path))
	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, counter, ext))
		counter++
	}

	if err := copyFile(path, destPath); err != nil {
		slog.Error("error moving file", "file", path, "dest", destPath, "error", err)
		return
	}
	os.Remove(path)
	slog.Info("file moved", "dest", destPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func createDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

package abstraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Jaeyong-Cho/abstraction/internal/extract"
	"github.com/Jaeyong-Cho/abstraction/internal/index"
	"github.com/Jaeyong-Cho/abstraction/internal/store"
)

// Engine orchestrates the indexing pipeline: file discovery, per-file
// extraction, registry and call-graph assembly, and atomic snapshot
// publication. The workspace root is fixed at construction and threaded
// through every run; nothing reads ambient process state.
type Engine struct {
	workspace string
	store     *store.Store
	logger    *slog.Logger

	languages  map[string]bool // nil means all languages
	ignoreDirs map[string]bool
	fileLimit  int           // 0 means no ceiling
	timeout    time.Duration // 0 means no ceiling

	// useParallel enables worker-pool extraction.
	useParallel bool

	// current is the published snapshot. Swapped atomically at the end of a
	// successful run; readers never observe a partially built graph.
	current atomic.Pointer[index.Snapshot]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default), Index uses
// a worker pool for parsing. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithFileLimit aborts index runs that discover more than n files. The run
// fails before extraction starts and no snapshot is published.
func WithFileLimit(n int) Option {
	return func(e *Engine) {
		e.fileLimit = n
	}
}

// WithTimeout aborts index runs outliving d. An aborted run publishes
// nothing; the previous snapshot stays current.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithIgnoreDirs adds directory names to skip during filesystem walks.
func WithIgnoreDirs(names ...string) Option {
	return func(e *Engine) {
		for _, n := range names {
			e.ignoreDirs[n] = true
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine rooted at workspace, backed by a SQLite database at
// <workspace>/.abstraction/index.db.
func New(workspace string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("abstraction: resolve workspace: %w", err)
	}
	dataDir := filepath.Join(abs, configDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("abstraction: create data dir: %w", err)
	}
	s, err := store.NewStore(filepath.Join(dataDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("abstraction: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("abstraction: migrate: %w", err)
	}

	e := &Engine{
		workspace:   abs,
		store:       s,
		logger:      slog.Default(),
		ignoreDirs:  map[string]bool{"node_modules": true, "vendor": true, "__pycache__": true},
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Workspace returns the absolute workspace root.
func (e *Engine) Workspace() string {
	return e.workspace
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Snapshot returns the current published snapshot. When no run happened in
// this process, the last persisted snapshot is loaded and published. Returns
// nil when the workspace has never been indexed.
func (e *Engine) Snapshot() *Snapshot {
	if snap := e.current.Load(); snap != nil {
		return snap
	}
	snap, err := e.store.LoadSnapshot()
	if err != nil || snap == nil {
		return nil
	}
	// Another goroutine may have published meanwhile; first one wins.
	e.current.CompareAndSwap(nil, snap)
	return e.current.Load()
}

// Query returns a QueryBuilder over the current snapshot.
func (e *Engine) Query() (*QueryBuilder, error) {
	snap := e.Snapshot()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return &QueryBuilder{snap: snap, store: e.store}, nil
}

// Index runs the full pipeline: discover files, extract every function,
// resolve the call graph, then publish and persist the snapshot. The build
// happens entirely off to the side; on any abort the previously published
// snapshot stays current.
func (e *Engine) Index(ctx context.Context) (*Snapshot, error) {
	started := time.Now()

	paths, err := e.discoverFiles()
	if err != nil {
		return nil, err
	}
	if e.fileLimit > 0 && len(paths) > e.fileLimit {
		return nil, fmt.Errorf("%w: %d files found, limit %d", ErrFileLimitExceeded, len(paths), e.fileLimit)
	}
	e.logger.Info("index.start", "workspace", e.workspace, "files", len(paths))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	records, diags, contentHash, err := e.extractPaths(ctx, paths)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrBuildTimeout, time.Since(started).Round(time.Millisecond))
		}
		return nil, err
	}

	snap := index.NewSnapshot(e.workspace, len(paths), records, diags)
	if err := e.store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	_ = e.store.SetMetadata("content_hash", contentHash)
	e.current.Store(snap)

	e.logger.Info("index.published",
		"functions", snap.Registry.Len(),
		"edges", len(snap.Graph.Edges()),
		"diagnostics", len(snap.Diagnostics),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return snap, nil
}

// ContentChanged reports whether the workspace files differ from what the
// persisted snapshot was built from. True on first run or when the tree
// cannot be read.
func (e *Engine) ContentChanged(ctx context.Context) bool {
	stored, err := e.store.GetMetadata("content_hash")
	if err != nil || stored == "" {
		return true
	}
	paths, err := e.discoverFiles()
	if err != nil {
		return true
	}
	items, _, err := e.readFiles(ctx, paths)
	if err != nil {
		return true
	}
	return hashContents(items) != stored
}

// discoverFiles lists supported source files under the workspace, relative
// to the workspace root. Inside a git repository, git ls-files is used so
// .gitignore is respected; otherwise a filesystem walk skipping hidden and
// ignored directories.
func (e *Engine) discoverFiles() ([]string, error) {
	paths, err := e.gitListFiles()
	if err != nil {
		paths, err = e.walkListFiles()
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files, filtered to supported languages.
func (e *Engine) gitListFiles() ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore and global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = e.workspace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if e.wantFile(line) {
			paths = append(paths, filepath.ToSlash(line))
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(e.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != e.workspace && (strings.HasPrefix(name, ".") || e.ignoreDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(e.workspace, path)
		if err != nil {
			return err
		}
		if e.wantFile(rel) {
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	return paths, nil
}

// wantFile reports whether the relative path has a supported extension and
// passes the language filter.
func (e *Engine) wantFile(rel string) bool {
	lang, ok := extract.LanguageForFile(rel)
	if !ok {
		return false
	}
	return e.languages == nil || e.languages[lang]
}

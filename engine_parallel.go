package abstraction

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Jaeyong-Cho/abstraction/internal/extract"
	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// workItem holds one file's content, ready for extraction.
type workItem struct {
	path string // workspace-relative, slash-separated
	lang string
	src  []byte
}

// extractPaths runs the two-phase extraction pipeline:
//
//	Phase A (bounded parallel): read and hash file contents.
//	Phase B (worker pool):      parse and extract function records.
//
// Per-file failures become diagnostics and never abort the run; only context
// cancellation does. The returned hash digests the file contents this run
// saw, so each run carries its own instead of racing on shared state.
func (e *Engine) extractPaths(ctx context.Context, paths []string) ([]*model.FunctionRecord, []model.Diagnostic, string, error) {
	items, diags, err := e.readFiles(ctx, paths)
	if err != nil {
		return nil, nil, "", err
	}
	contentHash := hashContents(items)
	if len(items) == 0 {
		return nil, diags, contentHash, nil
	}

	if !e.useParallel {
		records, diags, err := e.extractSerial(ctx, items, diags)
		if err != nil {
			return nil, nil, "", err
		}
		return records, diags, contentHash, nil
	}

	numWorkers := min(runtime.NumCPU(), len(items))
	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		path    string
		records []*model.FunctionRecord
		err     error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker owns its parser instances; tree-sitter trees are
			// never shared across goroutines.
			for item := range workCh {
				if ctx.Err() != nil {
					resultCh <- result{path: item.path, err: ctx.Err()}
					continue
				}
				ext, _ := extract.ForFile(item.path)
				records, err := ext.Extract(ctx, item.path, item.src)
				resultCh <- result{path: item.path, records: records, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	byPath := make(map[string][]*model.FunctionRecord, len(items))
	for res := range resultCh {
		if res.err != nil {
			if ctx.Err() != nil {
				return nil, nil, "", ctx.Err()
			}
			diags = append(diags, model.Diagnostic{
				Kind:   model.DiagExtractionFailure,
				Path:   res.path,
				Detail: res.err.Error(),
			})
			continue
		}
		byPath[res.path] = res.records
	}

	// Workers finish in arbitrary order; reassemble in discovery order so
	// registry construction is deterministic.
	var records []*model.FunctionRecord
	for _, item := range items {
		records = append(records, byPath[item.path]...)
	}
	return records, diags, contentHash, nil
}

func (e *Engine) extractSerial(ctx context.Context, items []workItem, diags []model.Diagnostic) ([]*model.FunctionRecord, []model.Diagnostic, error) {
	var records []*model.FunctionRecord
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		ext, _ := extract.ForFile(item.path)
		recs, err := ext.Extract(ctx, item.path, item.src)
		if err != nil {
			diags = append(diags, model.Diagnostic{
				Kind:   model.DiagExtractionFailure,
				Path:   item.path,
				Detail: err.Error(),
			})
			continue
		}
		records = append(records, recs...)
	}
	return records, diags, nil
}

// readFiles loads file contents with bounded parallelism. Unreadable files
// become diagnostics, not errors.
func (e *Engine) readFiles(ctx context.Context, paths []string) ([]workItem, []model.Diagnostic, error) {
	items := make([]workItem, len(paths))
	failed := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(e.workspace, filepath.FromSlash(rel)))
			if err != nil {
				failed[i] = err
				return nil
			}
			lang, _ := extract.LanguageForFile(rel)
			items[i] = workItem{path: rel, lang: lang, src: src}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var diags []model.Diagnostic
	var ok []workItem
	for i, item := range items {
		if failed[i] != nil {
			diags = append(diags, model.Diagnostic{
				Kind:   model.DiagExtractionFailure,
				Path:   paths[i],
				Detail: fmt.Sprintf("read file: %v", failed[i]),
			})
			continue
		}
		ok = append(ok, item)
	}
	return ok, diags, nil
}

// hashContents digests all (path, content) pairs in path order. Stored with
// the snapshot so later runs can tell whether the tree changed at all.
func hashContents(items []workItem) string {
	sorted := make([]workItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

	h := sha256.New()
	for _, item := range sorted {
		h.Write([]byte(item.path))
		sum := sha256.Sum256(item.src)
		h.Write(sum[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/hyperjump/kplus/internal/extract"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// BatchItem is the outcome for one input path: either Document or Err is set.
type BatchItem struct {
	Path     string
	Document *models.Document
	Err      error
}

// BatchResult holds one item per input path, in input order.
type BatchResult struct {
	Items []BatchItem
}

// Documents returns the successfully parsed documents in input order.
func (r BatchResult) Documents() []*models.Document {
	return lo.FilterMap(r.Items, func(it BatchItem, _ int) (*models.Document, bool) {
		return it.Document, it.Err == nil && it.Document != nil
	})
}

// Failed returns the items whose parsing failed.
func (r BatchResult) Failed() []BatchItem {
	return lo.Filter(r.Items, func(it BatchItem, _ int) bool { return it.Err != nil })
}

// ParseBatch parses paths with at most workers concurrent parses (<= 0 means
// GOMAXPROCS). A failing file is recorded and the batch continues. Files not yet
// started when ctx is cancelled get ctx's error.
func (p *Pipeline) ParseBatch(ctx context.Context, paths []string, workers int) BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	items := make([]BatchItem, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for n, w := min(workers, max(len(paths), 1)), 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				doc, err := p.ParseFile(ctx, paths[i])
				if err != nil {
					p.logger.Error("failed to parse file", zap.String("path", paths[i]), zap.Error(err))
				}
				items[i] = BatchItem{Path: paths[i], Document: doc, Err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	res := BatchResult{Items: items}
	p.logger.Info("batch finished",
		zap.Int("total", len(paths)),
		zap.Int("parsed", len(res.Documents())),
		zap.Int("failed", len(res.Failed())))
	return res
}

// CollectFiles walks root and returns the files with a supported extension, sorted.
// When recursive is false only the top level of root is listed.
func CollectFiles(root string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if extract.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

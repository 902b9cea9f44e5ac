package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
)

type Config[R any, A any] struct {
	Max       int
	Semaphore chan struct{}
	Skipper   func(path string) bool
	Do        func(Args[A]) (R, error)
	Args      A
}

type Args[A any] struct {
	Context context.Context
	Path    string
	Args    A
}

// Result pairs a path with what Do returned for it. Err is set when Do failed.
type Result[R any] struct {
	Path   string `json:"path"`
	Result R      `json:"result"`
	Err    error  `json:"-"`
}

// WalkDir traverses the folder rooted at "root" and, for each file not skipped,
// spawns a goroutine (limited by a semaphore of size runtime.NumCPU by default)
// that runs config.Do. Every outcome, failures included, is sent on results,
// which is closed when the walk ends.
func WalkDir[R any, A any](ctx context.Context, root string, results chan<- Result[R], config Config[R, A]) error {
	if results == nil {
		return errors.New("results must not be nil")
	}
	defer close(results)

	if config.Do == nil {
		return errors.New("do function must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if config.Semaphore == nil {
		config.Semaphore = make(chan struct{}, runtime.NumCPU())
	}

	var (
		count int
		wg    sync.WaitGroup
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn("Skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if config.Skipper != nil && config.Skipper(path) {
			return nil
		}
		if config.Max > 0 && count >= config.Max {
			return filepath.SkipAll
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		count++
		wg.Add(1)
		config.Semaphore <- struct{}{}
		go func(path string) {
			defer func() { <-config.Semaphore; wg.Done() }()
			if ctx.Err() != nil {
				return
			}
			result, err := config.Do(Args[A]{
				Context: ctx,
				Path:    path,
				Args:    config.Args,
			})
			if err != nil {
				log.Warn("Failed to process file", "path", path, "err", err)
			} else {
				log.Debugf("Processed %s %#v", path, result)
			}
			select {
			case <-ctx.Done():
			case results <- Result[R]{Path: path, Result: result, Err: err}:
			}
		}(path)

		return nil
	})
	wg.Wait()
	if err != nil {
		return fmt.Errorf("error walking the path %s: %w", root, err)
	}
	return nil
}

func Skippers(skippers ...func(path string) bool) func(path string) bool {
	return func(path string) bool {
		for _, skipper := range skippers {
			if skipper == nil {
				continue
			}
			if skipper(path) {
				return true
			}
		}
		return false
	}
}

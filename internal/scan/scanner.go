// Package scan walks a directory tree and totals the space used beneath
// every folder.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const progressEvery = 100

// Options configures a Scanner.
type Options struct {
	// Concurrency bounds the number of directories read in parallel.
	// Zero means half the number of CPUs.
	Concurrency int
	// PhysicalSize reports allocated disk space instead of file length.
	PhysicalSize bool
	// Exclude lists base-name glob patterns that are skipped entirely.
	Exclude []string
	// OnProgress receives the running file count every 100 files. It is
	// called from scanning goroutines.
	OnProgress func(files int64)
}

// Scanner computes directory sizes.
type Scanner struct {
	opts  Options
	sem   *semaphore.Weighted
	files atomic.Int64
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	return &Scanner{
		opts: opts,
		sem:  semaphore.NewWeighted(int64(concurrency(opts.Concurrency))),
	}
}

func concurrency(n int) int {
	if n > 0 {
		return n
	}
	return max(runtime.NumCPU()/2, 1)
}

// Files returns the number of files counted by the current or last scan.
func (s *Scanner) Files() int64 {
	return s.files.Load()
}

// Scan walks root and returns its size tree. Directories that cannot be
// read are returned with Err set rather than failing the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (*Node, error) {
	s.files.Store(0)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return s.fileNode(abs, info), nil
	}

	node := s.scanDir(ctx, abs, info.Name())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *Scanner) scanDir(ctx context.Context, path, name string) *Node {
	node := &Node{Name: name, Path: path, IsDir: true}
	if ctx.Err() != nil {
		return node
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		node.Err = fmt.Sprintf("access denied: %v", err)
		return node
	}

	children := make([]*Node, len(entries))
	var wg sync.WaitGroup
	for i, entry := range entries {
		if s.excluded(entry.Name()) {
			continue
		}
		childPath := filepath.Join(path, entry.Name())

		if isSymlink(childPath, entry) {
			children[i] = &Node{Name: entry.Name(), Path: childPath, FileCount: 1}
			s.progress()
			continue
		}

		if !entry.IsDir() {
			var size int64
			if info, err := entry.Info(); err == nil {
				size = s.size(childPath, info)
			}
			children[i] = &Node{Name: entry.Name(), Path: childPath, Size: size, FileCount: 1}
			s.progress()
			continue
		}

		// Take a token when one is free, otherwise recurse inline so a deep
		// tree cannot exhaust the pool and stall.
		if s.sem.TryAcquire(1) {
			wg.Add(1)
			go func(idx int, p, n string) {
				defer wg.Done()
				defer s.sem.Release(1)
				children[idx] = s.scanDir(ctx, p, n)
			}(i, childPath, entry.Name())
			continue
		}
		children[i] = s.scanDir(ctx, childPath, entry.Name())
	}
	wg.Wait()

	node.Children = make([]*Node, 0, len(children))
	for _, child := range children {
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	node.Recompute()
	return node
}

func (s *Scanner) fileNode(path string, info fs.FileInfo) *Node {
	s.progress()
	return &Node{
		Name:      info.Name(),
		Path:      path,
		Size:      s.size(path, info),
		FileCount: 1,
	}
}

func (s *Scanner) size(path string, info fs.FileInfo) int64 {
	if s.opts.PhysicalSize {
		return physicalSize(path, info)
	}
	return info.Size()
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) progress() {
	count := s.files.Add(1)
	if s.opts.OnProgress != nil && count%progressEvery == 0 {
		s.opts.OnProgress(count)
	}
}

// ABOUTME: In-memory Remote for tests and dry runs
// ABOUTME: Keeps files in a map with content-derived SHAs and optional failure injection
package mirror

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInjected is returned by a MemoryRemote set to fail.
var ErrInjected = errors.New("injected remote failure")

// MemoryRemote is a Remote holding files in memory.
type MemoryRemote struct {
	mu    sync.Mutex
	files map[string]File
	fail  bool
	puts  []string
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{files: make(map[string]File)}
}

// SetFailing makes every call return ErrInjected.
func (r *MemoryRemote) SetFailing(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

// Paths returns the stored paths, sorted.
func (r *MemoryRemote) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.files))
	for p := range r.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Puts returns the commit messages of every successful Put, in order.
func (r *MemoryRemote) Puts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.puts...)
}

// Content returns the raw content at path.
func (r *MemoryRemote) Content(path string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[path]
	return f.Content, ok
}

// Seed stores content at path without recording a Put.
func (r *MemoryRemote) Seed(path string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[path] = File{Path: path, SHA: shaOf(content), Content: content}
}

func shaOf(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

func (r *MemoryRemote) Get(_ context.Context, path string) (*File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, ErrInjected
	}
	f, ok := r.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *MemoryRemote) Put(_ context.Context, path string, content []byte, message, sha string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return ErrInjected
	}
	if cur, ok := r.files[path]; ok && cur.SHA != sha {
		return fmt.Errorf("sha mismatch for %s", path)
	}
	r.files[path] = File{Path: path, SHA: shaOf(content), Content: append([]byte(nil), content...)}
	r.puts = append(r.puts, message)
	return nil
}

func (r *MemoryRemote) Delete(_ context.Context, path, _ string, sha string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return ErrInjected
	}
	cur, ok := r.files[path]
	if !ok {
		return fmt.Errorf("%s does not exist", path)
	}
	if cur.SHA != sha {
		return fmt.Errorf("sha mismatch for %s", path)
	}
	delete(r.files, path)
	return nil
}

func (r *MemoryRemote) List(_ context.Context, dir string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, ErrInjected
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var entries []Entry
	for p, f := range r.files {
		name, ok := strings.CutPrefix(p, prefix)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		entries = append(entries, Entry{Name: name, Path: p, SHA: f.SHA, Type: "file"})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

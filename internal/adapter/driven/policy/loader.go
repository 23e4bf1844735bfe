// Package policy implements the PolicySource port over a directory of
// per-repository YAML or TOML files.
package policy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PolicySource = (*Loader)(nil)

// extensions are tried in order for <dir>/<owner>/<repo><ext>.
var extensions = []string{".yaml", ".yml", ".toml"}

// Loader reads policies from dir/<owner>/<repo>.{yaml,yml,toml} and caches
// them until the files change.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*model.Policy
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]*model.Policy),
	}
}

// Load returns the policy for repoFullName. A repository without a policy
// file yields an error wrapping model.ErrConfigurationMissing; there is no
// fallback to another repository's policy. Structurally invalid policies are
// rejected by model.Policy.Validate.
func (l *Loader) Load(repoFullName string) (*model.Policy, error) {
	key := strings.ToLower(repoFullName)

	l.mu.RLock()
	cached, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		cp := *cached
		return &cp, nil
	}

	p, err := l.read(repoFullName)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = p
	l.mu.Unlock()

	cp := *p
	return &cp, nil
}

func (l *Loader) read(repoFullName string) (*model.Policy, error) {
	path, err := l.find(repoFullName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy %s: %w", path, err)
	}

	doc, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	p, err := doc.toPolicy(repoFullName, path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("policy loaded", "repo", repoFullName, "path", path, "sections", len(p.Sections), "labels", len(p.Taxonomy))
	return p, nil
}

func (l *Loader) find(repoFullName string) (string, error) {
	owner, repo, ok := strings.Cut(repoFullName, "/")
	if !ok || !filepath.IsLocal(owner) || !filepath.IsLocal(repo) || strings.ContainsAny(repo, `/\`) {
		return "", fmt.Errorf("invalid repo name %q: expected owner/repo", repoFullName)
	}

	base := filepath.Join(l.dir, owner, repo)
	for _, ext := range extensions {
		path := base + ext
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking policy %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no policy file for %s under %s: %w", repoFullName, l.dir, model.ErrConfigurationMissing)
}

// Invalidate drops every cached policy.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	clear(l.cache)
	l.mu.Unlock()
}

// Watch invalidates the cache whenever a file under the policy directory
// changes. It blocks until ctx is canceled.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating policy watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := l.addTree(watcher, l.dir); err != nil {
		return err
	}
	slog.Info("watching policy directory", "dir", l.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := l.addTree(watcher, event.Name); err != nil {
						slog.Warn("watching new policy directory failed", "dir", event.Name, "error", err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			l.Invalidate()
			slog.Debug("policy cache invalidated", "path", event.Name, "op", event.Op.String())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("policy watcher error", "error", err)
		}
	}
}

func (l *Loader) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}

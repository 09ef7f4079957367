package profile

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/layout"
	"github.com/womp-app/womp/internal/womperr"
)

// Store owns the profiles directory. A single mutex serializes every read of
// the directory listing and every mutation, so a listing never observes a
// half-finished rename, clone or delete.
type Store struct {
	mu         sync.Mutex
	dir        string
	generation uint64
	warning    error
	logger     *zap.Logger
}

// NewStore opens the profiles directory, creating it if needed. When the
// directory cannot be created or read the store still opens, lists no
// profiles, and reports the problem through Warning.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{dir: dir, logger: logger}

	if err := os.MkdirAll(dir, 0755); err != nil {
		s.warning = fmt.Errorf("%w: failed to create profiles directory: %v", womperr.ErrPersistence, err)
	} else if _, err := os.ReadDir(dir); err != nil {
		s.warning = fmt.Errorf("%w: profiles directory unreadable: %v", womperr.ErrPersistence, err)
	}
	if s.warning != nil {
		logger.Warn("profile store degraded, starting with no profiles",
			zap.String("dir", dir), zap.Error(s.warning))
	}
	return s
}

// Dir returns the profiles directory.
func (s *Store) Dir() string {
	return s.dir
}

// Warning returns the startup problem, if any.
func (s *Store) Warning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warning
}

// Generation increases on every successful mutation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// List returns every profile sorted by name. An empty or missing directory
// yields an empty list.
func (s *Store) List() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.namesLocked()
	if err != nil {
		return []Profile{}, err
	}

	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		p := Profile{Name: name}
		cfg, err := readConfigFile(filepath.Join(s.dir, name))
		switch {
		case err == nil:
			p.Config = cfg
		case errors.Is(err, os.ErrNotExist):
		default:
			s.logger.Warn("profile config unreadable", zap.String("profile", name), zap.Error(err))
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Names returns the sorted profile names.
func (s *Store) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

func (s *Store) namesLocked() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return []string{}, fmt.Errorf("%w: failed to list profiles: %v", womperr.ErrPersistence, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a profile named name exists.
func (s *Store) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.existingDirLocked(name)
	return err == nil
}

// ProfileDir returns the directory of an existing profile.
func (s *Store) ProfileDir(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existingDirLocked(name)
}

// ReadConfig returns the profile's metadata, or nil for a raw profile.
func (s *Store) ReadConfig(name string) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.existingDirLocked(name)
	if err != nil {
		return nil, err
	}
	cfg, err := readConfigFile(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: profile %q: %v", womperr.ErrPersistence, name, err)
	}
	return cfg, nil
}

// ReadLayout returns the captured layout of a profile.
func (s *Store) ReadLayout(name string) (layout.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.existingDirLocked(name)
	if err != nil {
		return layout.Layout{}, err
	}
	l, err := readLayoutFile(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return layout.Layout{}, fmt.Errorf("%w: profile %q has no captured layout", womperr.ErrNotFound, name)
		}
		return layout.Layout{}, fmt.Errorf("%w: profile %q: %v", womperr.ErrPersistence, name, err)
	}
	return l, nil
}

// Create stores l under the sanitized form of name and returns the new
// profile. cfg is written when non-nil; a new profile without cfg gets one
// whose display name is the name as typed. With overwrite an existing
// profile keeps its metadata unless cfg is given and only its layout is
// replaced.
func (s *Store) Create(name string, l layout.Layout, cfg *Config, overwrite bool) (Profile, error) {
	slug := Sanitize(name)
	if slug == "" {
		return Profile{}, fmt.Errorf("%w: %q", womperr.ErrEmptyName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := filepath.Join(s.dir, slug)
	exists, err := dirExists(target)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}

	if exists {
		if !overwrite {
			return Profile{}, fmt.Errorf("%w: profile %q already exists", womperr.ErrNameConflict, slug)
		}
		if err := writeLayoutFile(target, l); err != nil {
			return Profile{}, fmt.Errorf("%w: failed to write layout for %q: %v", womperr.ErrPersistence, slug, err)
		}
		if cfg != nil {
			if err := writeConfigFile(target, cfg.Normalize()); err != nil {
				return Profile{}, fmt.Errorf("%w: failed to write config for %q: %v", womperr.ErrPersistence, slug, err)
			}
		}
		s.generation++
		stored, _ := readConfigFile(target)
		return Profile{Name: slug, Config: stored}, nil
	}

	meta := Config{Name: strings.TrimSpace(name)}
	if cfg != nil {
		meta = cfg.Normalize()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return Profile{}, fmt.Errorf("%w: failed to create profiles directory: %v", womperr.ErrPersistence, err)
	}
	// Build the profile in a hidden staging directory and rename it into
	// place so listings never see a profile without its files.
	staging, err := os.MkdirTemp(s.dir, ".create-")
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	if err := writeLayoutFile(staging, l); err != nil {
		os.RemoveAll(staging)
		return Profile{}, fmt.Errorf("%w: failed to write layout for %q: %v", womperr.ErrPersistence, slug, err)
	}
	if err := writeConfigFile(staging, meta); err != nil {
		os.RemoveAll(staging)
		return Profile{}, fmt.Errorf("%w: failed to write config for %q: %v", womperr.ErrPersistence, slug, err)
	}
	if err := os.Chmod(staging, 0755); err != nil {
		os.RemoveAll(staging)
		return Profile{}, fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	if err := os.Rename(staging, target); err != nil {
		os.RemoveAll(staging)
		return Profile{}, fmt.Errorf("%w: failed to create profile %q: %v", womperr.ErrPersistence, slug, err)
	}

	s.generation++
	return Profile{Name: slug, Config: &meta}, nil
}

// Rename moves profile old to the sanitized form of newName and returns the
// resulting slug.
func (s *Store) Rename(old, newName string) (string, error) {
	slug := Sanitize(newName)
	if slug == "" {
		return "", fmt.Errorf("%w: %q", womperr.ErrEmptyName, newName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.existingDirLocked(old)
	if err != nil {
		return "", err
	}
	if slug == old {
		return slug, nil
	}

	dst := filepath.Join(s.dir, slug)
	exists, err := dirExists(dst)
	if err != nil {
		return "", fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	if exists {
		return "", fmt.Errorf("%w: profile %q already exists", womperr.ErrNameConflict, slug)
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("%w: failed to rename %q to %q: %v", womperr.ErrPersistence, old, slug, err)
	}
	s.generation++
	return slug, nil
}

// Clone deep-copies a profile under the first free name of the form
// <name>_clone, <name>_clone_2, <name>_clone_3, ... and returns it.
func (s *Store) Clone(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.existingDirLocked(name)
	if err != nil {
		return "", err
	}

	cloneName, err := s.cloneNameLocked(name)
	if err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp(s.dir, ".clone-")
	if err != nil {
		return "", fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	if err := os.Remove(staging); err != nil {
		return "", fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	if err := copyDir(src, staging); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("%w: failed to copy profile %q: %v", womperr.ErrPersistence, name, err)
	}
	if err := os.Rename(staging, filepath.Join(s.dir, cloneName)); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("%w: failed to create clone %q: %v", womperr.ErrPersistence, cloneName, err)
	}

	s.generation++
	return cloneName, nil
}

func (s *Store) cloneNameLocked(name string) (string, error) {
	base := name + "_clone"
	candidate := base
	for i := 2; ; i++ {
		exists, err := dirExists(filepath.Join(s.dir, candidate))
		if err != nil {
			return "", fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// Delete removes a profile and all of its files.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.existingDirLocked(name)
	if err != nil {
		return err
	}

	// Rename first so a failed RemoveAll never leaves a half-deleted profile
	// visible under its name.
	trash, err := os.MkdirTemp(s.dir, ".delete-")
	if err != nil {
		return fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	trashed := filepath.Join(trash, name)
	if err := os.Rename(dir, trashed); err != nil {
		os.Remove(trash)
		return fmt.Errorf("%w: failed to delete profile %q: %v", womperr.ErrPersistence, name, err)
	}
	s.generation++

	if err := os.RemoveAll(trash); err != nil {
		s.logger.Warn("failed to clean up deleted profile", zap.String("profile", name), zap.Error(err))
	}
	return nil
}

// WriteConfig replaces the metadata of an existing profile. When
// checkTargets is set, every non-empty hook target must be an existing file
// or resolvable on PATH.
func (s *Store) WriteConfig(name string, cfg Config, checkTargets bool) error {
	cfg = cfg.Normalize()

	if checkTargets {
		for _, cmd := range []*RunCommand{cfg.Run.Before, cfg.Run.After} {
			if cmd.Runnable() && !targetExists(cmd.Target) {
				return fmt.Errorf("%w: run target %q", womperr.ErrNotFound, cmd.Target)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.existingDirLocked(name)
	if err != nil {
		return err
	}
	if err := writeConfigFile(dir, cfg); err != nil {
		return fmt.Errorf("%w: failed to write config for %q: %v", womperr.ErrPersistence, name, err)
	}
	s.generation++
	return nil
}

func (s *Store) existingDirLocked(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", fmt.Errorf("%w: profile %q", womperr.ErrNotFound, name)
	}
	dir := filepath.Join(s.dir, name)
	exists, err := dirExists(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", womperr.ErrPersistence, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: profile %q", womperr.ErrNotFound, name)
	}
	return dir, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("invalid profile name %q", name)
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid profile name %q", name)
	}
	return nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func targetExists(target string) bool {
	if _, err := os.Stat(target); err == nil {
		return true
	}
	_, err := exec.LookPath(target)
	return err == nil
}

package motion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is a directory of recordings. Loaded recordings are cached.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Recording
}

// NewStore opens the store at dir. The directory does not need to exist;
// a missing directory is an empty store.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]*Recording),
	}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a recording named name would live in.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+fileExt), nil
}

// Has reports whether a recording file exists for name.
func (s *Store) Has(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads and validates the recording for name.
func (s *Store) Load(name string) (*Recording, error) {
	s.mu.RLock()
	rec, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read motion %s: %w", name, err)
	}

	rec, err = Parse(name, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[name] = rec
	s.mu.Unlock()
	return rec, nil
}

// List returns the names of every recording in the store, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list motions: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Parse decodes and validates a recording.
func Parse(name string, data []byte) (*Recording, error) {
	var raw recordingFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecording, name, err)
	}

	if len(raw.Time) == 0 || len(raw.Frames) == 0 {
		return nil, fmt.Errorf("%w: %s has no frames", ErrInvalidRecording, name)
	}
	if len(raw.Time) != len(raw.Frames) {
		return nil, fmt.Errorf("%w: %s has %d timestamps for %d frames",
			ErrInvalidRecording, name, len(raw.Time), len(raw.Frames))
	}
	if len(raw.Joints) == 0 {
		return nil, fmt.Errorf("%w: %s names no joints", ErrInvalidRecording, name)
	}
	for i, f := range raw.Frames {
		if len(f) != len(raw.Joints) {
			return nil, fmt.Errorf("%w: %s frame %d has %d values for %d joints",
				ErrInvalidRecording, name, i, len(f), len(raw.Joints))
		}
		if i > 0 && raw.Time[i] < raw.Time[i-1] {
			return nil, fmt.Errorf("%w: %s timestamps go backwards at frame %d",
				ErrInvalidRecording, name, i)
		}
	}

	duration := raw.Time[len(raw.Time)-1] - raw.Time[0]
	return &Recording{
		Name:        name,
		Description: raw.Description,
		Joints:      raw.Joints,
		Timestamps:  raw.Time,
		Frames:      raw.Frames,
		Duration:    time.Duration(duration * float64(time.Second)),
	}, nil
}

func checkName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// JSONStore keeps every day's count in one JSON object on disk, for example
// {"2024-01-15": 2, "2024-01-16": 7}. The file is read on every call and
// rewritten whole on every increment, so separate processes sharing the file
// see each other's updates. Concurrent writers in different processes can
// lose updates; within one process increments are serialized.
type JSONStore struct {
	path   string
	logger yarasp.Logger
	mu     sync.Mutex
}

// NewJSONStore returns a store backed by path. The file is created on the
// first increment.
func NewJSONStore(path string, logger yarasp.Logger) *JSONStore {
	if logger == nil {
		logger = yarasp.NopLogger{}
	}

	return &JSONStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// GetCount returns the stored count for day.
func (s *JSONStore) GetCount(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()

	return s.countFor(data, day), nil
}

// Increment adds one to day's count and flushes the file before returning.
func (s *JSONStore) Increment(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	next := s.countFor(data, day) + 1
	data[day] = json.RawMessage(strconv.Itoa(next))

	err := s.save(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrStorageWrite, s.path, err)
	}

	return next, nil
}

// Close is a no-op; nothing is held open between calls.
func (s *JSONStore) Close() error {
	return nil
}

// load reads the file. A missing file is empty; an unreadable or malformed
// file is logged and treated as empty.
func (s *JSONStore) load() map[string]json.RawMessage {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}
	}

	if err != nil {
		s.logger.Warn("Usage counter file unreadable, treating as empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})

		return map[string]json.RawMessage{}
	}

	data := map[string]json.RawMessage{}

	err = json.Unmarshal(raw, &data)
	if err != nil || data == nil {
		s.logger.Warn("Usage counter file corrupt, treating as empty", map[string]interface{}{
			"path": s.path,
		})

		return map[string]json.RawMessage{}
	}

	return data
}

// countFor parses day's entry. Anything but a non-negative integer is logged
// and counted as zero.
func (s *JSONStore) countFor(data map[string]json.RawMessage, day string) int {
	raw, ok := data[day]
	if !ok {
		return 0
	}

	var count int

	err := json.Unmarshal(raw, &count)
	if err != nil || count < 0 {
		s.logger.Warn("Usage counter entry corrupt, treating as zero", map[string]interface{}{
			"path": s.path,
			"day":  day,
		})

		return 0
	}

	return count
}

func (s *JSONStore) save(data map[string]json.RawMessage) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding counter: %w", err)
	}

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	_, err = tmp.Write(encoded)
	if err == nil {
		err = tmp.Sync()
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmp.Name(), constants.CounterFilePerm)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("writing temp file: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("replacing counter file: %w", err)
	}

	return nil
}

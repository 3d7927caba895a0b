// Package modelstore keeps scorecard documents and persisted evaluation
// results in blob storage.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Store abstracts blob storage for model documents and evaluation results.
type Store interface {
	PutModel(ctx context.Context, name, version string, data []byte) error
	GetModel(ctx context.Context, name, version string) ([]byte, error)
	PutResult(ctx context.Context, model, evaluationID string, data []byte) error
	GetResult(ctx context.Context, model, evaluationID string) ([]byte, error)
}

// ModelKey is the object key of a model document.
func ModelKey(name, version string) (string, error) {
	if err := checkSegment(name); err != nil {
		return "", fmt.Errorf("model name: %w", err)
	}
	if err := checkSegment(version); err != nil {
		return "", fmt.Errorf("model version: %w", err)
	}
	return "models/" + name + "/" + version + ".yaml", nil
}

// ResultKey is the object key of a persisted evaluation result.
func ResultKey(model, evaluationID string) (string, error) {
	if err := checkSegment(model); err != nil {
		return "", fmt.Errorf("model name: %w", err)
	}
	if err := checkSegment(evaluationID); err != nil {
		return "", fmt.Errorf("evaluation id: %w", err)
	}
	return "results/" + model + "/" + evaluationID + ".json", nil
}

func checkSegment(s string) error {
	switch {
	case s == "":
		return errors.New("empty")
	case s == "." || s == "..":
		return fmt.Errorf("%q is not allowed", s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%q contains a path separator", s)
	}
	return nil
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".yaml") {
		return "application/yaml"
	}
	return "application/json"
}

// LocalStorage implements Store using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) put(key string, data []byte) error {
	path := filepath.Join(s.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *LocalStorage) get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.BaseDir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return data, err
}

// PutModel stores a model document.
func (s *LocalStorage) PutModel(ctx context.Context, name, version string, data []byte) error {
	key, err := ModelKey(name, version)
	if err != nil {
		return err
	}
	return s.put(key, data)
}

// GetModel retrieves a model document.
func (s *LocalStorage) GetModel(ctx context.Context, name, version string) ([]byte, error) {
	key, err := ModelKey(name, version)
	if err != nil {
		return nil, err
	}
	return s.get(key)
}

// PutResult stores an evaluation result.
func (s *LocalStorage) PutResult(ctx context.Context, model, evaluationID string, data []byte) error {
	key, err := ResultKey(model, evaluationID)
	if err != nil {
		return err
	}
	return s.put(key, data)
}

// GetResult retrieves an evaluation result.
func (s *LocalStorage) GetResult(ctx context.Context, model, evaluationID string) ([]byte, error) {
	key, err := ResultKey(model, evaluationID)
	if err != nil {
		return nil, err
	}
	return s.get(key)
}

// Package staging holds decoded image payloads off the main processing path.
// Payloads are spilled to a scoped temporary directory at flatten time and
// read back one slide at a time during packing, so a large document never
// holds all of its images in memory at once.
package staging

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handle is an opaque reference to a staged payload. The zero value means
// "no image".
type Handle string

// NoHandle is the zero Handle.
const NoHandle Handle = ""

// Store is a scoped binary buffer backed by a temporary directory. It must be
// created before flattening starts and closed by the caller on every exit
// path; Close removes all staged payloads and the directory itself.
type Store struct {
	dir    string
	logger *logrus.Logger
	closed bool
}

// NewStore creates the backing directory under baseDir (or the system temp
// directory when baseDir is empty).
func NewStore(logger *logrus.Logger, baseDir string) (*Store, error) {
	if baseDir != "" {
		if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
			logger.WithField("temp_dir", baseDir).Warn("Configured temp directory unusable, falling back to system default")
			baseDir = ""
		}
	}

	dir, err := os.MkdirTemp(baseDir, "slidecraft-images-")
	if err != nil {
		return nil, fmt.Errorf("failed to create image staging directory: %w", err)
	}

	logger.WithField("dir", dir).Debug("Created image staging directory")
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the backing directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Stage decodes a base64 payload and persists it under a fresh unique name,
// returning the handle to read it back later.
func (s *Store) Stage(payload string) (Handle, error) {
	if s.closed {
		return NoHandle, fmt.Errorf("staging store is closed")
	}
	if payload == "" {
		return NoHandle, fmt.Errorf("empty image payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some producers omit padding.
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return NoHandle, fmt.Errorf("failed to decode image payload: %w", err)
		}
	}

	name := uuid.New().String() + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0600); err != nil {
		return NoHandle, fmt.Errorf("failed to write staged image: %w", err)
	}

	return Handle(name), nil
}

// Materialize returns the decoded bytes for a previously staged payload.
func (s *Store) Materialize(h Handle) ([]byte, error) {
	if s.closed {
		return nil, fmt.Errorf("staging store is closed")
	}
	if h == NoHandle || strings.ContainsAny(string(h), `/\`) {
		return nil, fmt.Errorf("invalid staging handle %q", h)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, string(h)))
	if err != nil {
		return nil, fmt.Errorf("failed to read staged image %s: %w", h, err)
	}
	return data, nil
}

// Close deletes every staged payload and the store directory. Safe to call
// more than once.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove staging directory %s: %w", s.dir, err)
	}
	s.logger.WithField("dir", s.dir).Debug("Removed image staging directory")
	return nil
}

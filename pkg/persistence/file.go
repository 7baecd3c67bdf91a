package persistence

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore persists each key as a JSON file under a base directory.
// Writes go through a temporary file followed by a rename, so a crashed write
// never leaves a truncated value behind.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// fallback to current directory if home dir cannot be determined
			homeDir = "."
		}
		dir = filepath.Join(homeDir, ".ai-chatbots")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create storage directory %s", dir)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// keys are namespaces like "ai-chatbot-session", keep them filesystem-safe
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrapf(err, "could not read %s", key)
	}
	return data, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	path := s.path(key)

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return errors.Wrap(err, "could not create temporary file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "could not write %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "could not close %s", key)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "could not replace %s", key)
	}

	log.Trace().Str("key", key).Int("bytes", len(value)).Msg("persisted value")
	return nil
}

func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not delete %s", key)
	}
	return nil
}

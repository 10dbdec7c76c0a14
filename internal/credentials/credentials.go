// Package credentials persists the last-used connection parameters.
//
// The password is never written to disk; the cache exists only to
// prefill the connect form and carries no authorization weight.
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"

	"mt5-terminal/internal/errors"
)

const cacheFileName = "credentials.json"

// Record holds the persisted connection parameters.
type Record struct {
	Login  string `json:"login"`
	Server string `json:"server"`
	Path   string `json:"path"`
}

// Cache stores a single credential record in the config directory.
type Cache struct {
	path string
}

// NewCache creates a credential cache rooted at configDir.
func NewCache(configDir string) *Cache {
	return &Cache{
		path: filepath.Join(configDir, cacheFileName),
	}
}

// Save overwrites the cached record. The write goes through a temp file
// and rename so a partial record is never observable.
func (c *Cache) Save(login, server, path string) error {
	record := Record{
		Login:  login,
		Server: server,
		Path:   path,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encoding credential record")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	tmp, err := os.CreateTemp(dir, cacheFileName+".*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing credential record")
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "restricting credential file permissions")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temp file")
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "replacing credential record")
	}

	return nil
}

// Load returns the cached record, if any.
func (c *Cache) Load() (*Record, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false
	}

	return &record, true
}

// Clear removes the cached record.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing credential record")
	}
	return nil
}

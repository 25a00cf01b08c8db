package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"scribe/models"
)

type savedSession struct {
	Server string          `json:"server"`
	Token  string          `json:"token"`
	User   *models.Session `json:"user"`
}

type sessionStore struct {
	path string
}

func defaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "blogctl", "session.json"), nil
}

func (s *sessionStore) Load() (*savedSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Save writes the session readable by the owner only.
func (s *sessionStore) Save(saved *savedSession) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *sessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

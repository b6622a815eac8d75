package store

import (
	"database/sql"
	"errors"
	"strconv"
)

const (
	keyRecording = "recording_enabled"
	keyOnboarded = "has_onboarded"
)

// getBool reads a boolean setting; missing keys are false.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) getBool(key string) (bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false, nil
	}
	return n != 0, nil
}

// setBool writes a boolean setting, last write wins.
// Caller must hold s.mu for writing.
func (s *Store) setBool(key string, v bool) error {
	_, err := s.db.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, strconv.Itoa(boolToInt(v)),
	)
	return err
}

// RecordingEnabled reports whether image capture is switched on.
func (s *Store) RecordingEnabled() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBool(keyRecording)
}

// SetRecordingEnabled switches image capture on or off.
func (s *Store) SetRecordingEnabled(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setBool(keyRecording, on)
}

// ToggleRecording flips the recording flag and returns the new value.
func (s *Store) ToggleRecording() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	on, err := s.getBool(keyRecording)
	if err != nil {
		return false, err
	}
	if err := s.setBool(keyRecording, !on); err != nil {
		return false, err
	}
	return !on, nil
}

// HasOnboarded reports whether the first-run hint was shown.
func (s *Store) HasOnboarded() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBool(keyOnboarded)
}

// MarkOnboarded records that the first-run hint was shown.
func (s *Store) MarkOnboarded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setBool(keyOnboarded, true)
}

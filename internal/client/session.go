package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// ErrNoSession is returned by LoadSession when no one is logged in.
var ErrNoSession = errors.New("no session")

// Session is the client's authentication state: which server it talks
// to, the bearer token and the user the token was issued for. It is
// written at login and removed at logout.
type Session struct {
	BaseURL string            `json:"base_url"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

// LoggedIn reports whether the session carries a token.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

// SessionFilePath returns TASKTRAIL_SESSION_FILE if set, otherwise
// $XDG_CONFIG_HOME/tasktrail/session.json (~/.config when unset).
func SessionFilePath() string {
	if envPath := os.Getenv("TASKTRAIL_SESSION_FILE"); envPath != "" {
		return envPath
	}
	configDirectory := os.Getenv("XDG_CONFIG_HOME")
	if configDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "tasktrail-session.json")
		}
		configDirectory = filepath.Join(homeDirectory, ".config")
	}
	return filepath.Join(configDirectory, "tasktrail", "session.json")
}

// LoadSession reads the session at path. A missing file yields ErrNoSession.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session file %s: %w", path, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	if session.Token == "" {
		return nil, ErrNoSession
	}
	return &session, nil
}

// SaveSession writes the session with mode 0600, creating the parent
// directory with mode 0700.
func SaveSession(path string, session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file %s: %w", path, err)
	}
	return nil
}

// ClearSession removes the session file. Removing a missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file %s: %w", path, err)
	}
	return nil
}

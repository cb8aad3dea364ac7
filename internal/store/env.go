package store

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/joho/godotenv"

	"dzfresh/internal/shared"
)

// namesKey lists the enrolled profile names as a JSON string array.
const namesKey = "NAMES"

// TokenKey returns the credential-store key holding a profile's access
// token.
func TokenKey(name string) string {
	return "API_TOKEN_" + shared.FoldName(name)
}

// PlaylistKey returns the credential-store key holding a profile's
// resolved playlist id.
func PlaylistKey(name string) string {
	return "PLAYLIST_ID_" + shared.FoldName(name)
}

// Env is a dotenv-file-backed credential store.
//
// Reads consult the process environment first and fall back to the
// file; writes always go to the file. A missing file reads as empty, so
// a fresh checkout works before the first enrollment.
type Env struct {
	path string
}

// NewEnv creates a credential store over the dotenv file at path.
func NewEnv(path string) *Env {
	return &Env{path: path}
}

// Path returns the dotenv file location backing the store.
func (e *Env) Path() string {
	return e.path
}

// Names returns the enrolled profile names, in enrollment order. An
// absent NAMES entry yields an empty list; a malformed one is an error.
func (e *Env) Names() ([]string, error) {
	raw := e.lookup(namesKey)
	if raw == "" {
		return nil, nil
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("failed to parse %s entry: %w", namesKey, err)
	}
	return names, nil
}

// Token returns the access token enrolled for name, or "" when the
// profile has none.
func (e *Env) Token(name string) string {
	return e.lookup(TokenKey(name))
}

// PlaylistID returns the playlist id last resolved for name, or ""
// when none has been persisted yet.
func (e *Env) PlaylistID(name string) string {
	return e.lookup(PlaylistKey(name))
}

// SetPlaylistID persists a resolved playlist id for name.
func (e *Env) SetPlaylistID(name, id string) error {
	env, err := e.read()
	if err != nil {
		return err
	}

	env[PlaylistKey(name)] = id
	return e.write(env)
}

// Enroll records a profile: the access token is stored, the playlist-id
// entry is initialized empty when absent, and the folded name is
// appended to NAMES. Enrolling an existing profile replaces its token
// and leaves its playlist id untouched.
func (e *Env) Enroll(name, token string) error {
	env, err := e.read()
	if err != nil {
		return err
	}

	folded := shared.FoldName(name)

	var names []string
	if raw := env[namesKey]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return fmt.Errorf("failed to parse %s entry: %w", namesKey, err)
		}
	}
	if !slices.Contains(names, folded) {
		names = append(names, folded)
	}

	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode %s entry: %w", namesKey, err)
	}

	env[namesKey] = string(encoded)
	env[TokenKey(name)] = token
	if _, ok := env[PlaylistKey(name)]; !ok {
		env[PlaylistKey(name)] = ""
	}

	return e.write(env)
}

// lookup resolves a key, letting the real environment shadow the file.
func (e *Env) lookup(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	env, err := e.read()
	if err != nil {
		return ""
	}
	return env[key]
}

func (e *Env) read() (map[string]string, error) {
	env, err := godotenv.Read(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return env, nil
}

func (e *Env) write(env map[string]string) error {
	if err := godotenv.Write(env, e.path); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}

// Package token owns the credential lifecycle for the remote media API:
// first-time interactive authorization via a loopback callback listener,
// persisted token reuse, and single-flight refresh.
package token

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vizmute/vizmute/internal/util"
)

// TokenSet is the persisted access/refresh credential pair.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ObtainedAt   time.Time
}

// Store persists a TokenSet as a flat key/value file. An absent or
// unparsable file is treated identically to "no credentials yet".
type Store struct {
	path string
}

// NewStore creates a store at the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted token set. ok is false when the file is absent,
// unreadable, or holds no access token.
func (s *Store) Load() (ts TokenSet, ok bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return TokenSet{}, false
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "access_token":
			ts.AccessToken = value
		case "refresh_token":
			ts.RefreshToken = value
		case "obtained_at":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				ts.ObtainedAt = t
			}
		}
	}

	if ts.AccessToken == "" {
		return TokenSet{}, false
	}
	return ts, true
}

// Save persists the token set as a full-file overwrite.
func (s *Store) Save(ts TokenSet) error {
	var b strings.Builder
	fmt.Fprintf(&b, "access_token=%s\n", ts.AccessToken)
	if ts.RefreshToken != "" {
		fmt.Fprintf(&b, "refresh_token=%s\n", ts.RefreshToken)
	}
	fmt.Fprintf(&b, "obtained_at=%s\n", ts.ObtainedAt.Format(time.RFC3339))

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return util.WrapError("create token directory", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o600); err != nil {
		return util.WrapError("write token store", err)
	}
	return nil
}

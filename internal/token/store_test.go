package token

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	store := NewStore(path)

	obtained := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	in := TokenSet{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		ObtainedAt:   obtained,
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, ok := store.Load()
	if !ok {
		t.Fatal("Load reported no credentials after Save")
	}
	if out.AccessToken != in.AccessToken || out.RefreshToken != in.RefreshToken {
		t.Errorf("got %+v, want %+v", out, in)
	}
	if !out.ObtainedAt.Equal(obtained) {
		t.Errorf("ObtainedAt = %v, want %v", out.ObtainedAt, obtained)
	}
}

func TestStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	store := NewStore(path)

	if err := store.Save(TokenSet{AccessToken: "a", ObtainedAt: time.Now()}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.txt"))
	if _, ok := store.Load(); ok {
		t.Error("Load reported credentials for a missing file")
	}
}

func TestStoreLoadIgnoresCommentsAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	content := "# saved by vizmute\n\naccess_token=abc\n\nrefresh_token=def\njunk line without separator\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	ts, ok := NewStore(path).Load()
	if !ok {
		t.Fatal("Load failed on a valid file")
	}
	if ts.AccessToken != "abc" || ts.RefreshToken != "def" {
		t.Errorf("got %+v", ts)
	}
}

func TestStoreLoadWithoutAccessToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	if err := os.WriteFile(path, []byte("refresh_token=def\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, ok := NewStore(path).Load(); ok {
		t.Error("a token set without an access token must not count as credentials")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	store := NewStore(path)

	if err := store.Save(TokenSet{AccessToken: "old", RefreshToken: "old-r", ObtainedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(TokenSet{AccessToken: "new", ObtainedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	ts, ok := store.Load()
	if !ok {
		t.Fatal("Load failed")
	}
	if ts.AccessToken != "new" {
		t.Errorf("AccessToken = %q, want %q", ts.AccessToken, "new")
	}
	if ts.RefreshToken != "" {
		t.Errorf("stale refresh token %q survived the overwrite", ts.RefreshToken)
	}
}

package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempEnv(t *testing.T) *Env {
	t.Helper()
	return NewEnv(filepath.Join(t.TempDir(), ".env"))
}

func TestEnv(t *testing.T) {
	t.Run("missing file reads empty", func(t *testing.T) {
		env := tempEnv(t)

		names, err := env.Names()
		if err != nil {
			t.Fatalf("Names() error: %v", err)
		}
		if len(names) != 0 {
			t.Errorf("expected no names, got %v", names)
		}
		if token := env.Token("alice"); token != "" {
			t.Errorf("expected empty token, got %q", token)
		}
	})

	t.Run("Enroll", func(t *testing.T) {
		t.Run("round trip", func(t *testing.T) {
			env := tempEnv(t)

			if err := env.Enroll("alice", "tok-1"); err != nil {
				t.Fatalf("Enroll() error: %v", err)
			}

			names, err := env.Names()
			if err != nil {
				t.Fatalf("Names() error: %v", err)
			}
			if len(names) != 1 || names[0] != "ALICE" {
				t.Errorf("expected [ALICE], got %v", names)
			}
			if token := env.Token("alice"); token != "tok-1" {
				t.Errorf("expected token tok-1, got %q", token)
			}
			if id := env.PlaylistID("alice"); id != "" {
				t.Errorf("expected empty playlist id, got %q", id)
			}
		})

		t.Run("folds accented names into keys", func(t *testing.T) {
			env := tempEnv(t)

			if err := env.Enroll("Zoé du Lac", "tok-zoe"); err != nil {
				t.Fatalf("Enroll() error: %v", err)
			}

			names, err := env.Names()
			if err != nil {
				t.Fatalf("Names() error: %v", err)
			}
			if len(names) != 1 || names[0] != "ZOE_DU_LAC" {
				t.Errorf("expected [ZOE_DU_LAC], got %v", names)
			}

			data, err := os.ReadFile(env.Path())
			if err != nil {
				t.Fatalf("failed to read env file: %v", err)
			}
			if !strings.Contains(string(data), "API_TOKEN_ZOE_DU_LAC") {
				t.Errorf("expected folded token key in file, got:\n%s", data)
			}
		})

		t.Run("dedups names and preserves playlist id", func(t *testing.T) {
			env := tempEnv(t)

			if err := env.Enroll("bob", "tok-old"); err != nil {
				t.Fatalf("Enroll() error: %v", err)
			}
			if err := env.SetPlaylistID("bob", "pl-42"); err != nil {
				t.Fatalf("SetPlaylistID() error: %v", err)
			}
			if err := env.Enroll("bob", "tok-new"); err != nil {
				t.Fatalf("Enroll() error: %v", err)
			}

			names, err := env.Names()
			if err != nil {
				t.Fatalf("Names() error: %v", err)
			}
			if len(names) != 1 {
				t.Errorf("expected a single name after re-enrollment, got %v", names)
			}
			if token := env.Token("bob"); token != "tok-new" {
				t.Errorf("expected replaced token, got %q", token)
			}
			if id := env.PlaylistID("bob"); id != "pl-42" {
				t.Errorf("expected preserved playlist id, got %q", id)
			}
		})

		t.Run("keeps enrollment order", func(t *testing.T) {
			env := tempEnv(t)

			for _, name := range []string{"carol", "alice", "bob"} {
				if err := env.Enroll(name, "tok-"+name); err != nil {
					t.Fatalf("Enroll(%q) error: %v", name, err)
				}
			}

			names, err := env.Names()
			if err != nil {
				t.Fatalf("Names() error: %v", err)
			}
			want := []string{"CAROL", "ALICE", "BOB"}
			if len(names) != len(want) {
				t.Fatalf("expected %v, got %v", want, names)
			}
			for i := range want {
				if names[i] != want[i] {
					t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
				}
			}
		})
	})

	t.Run("SetPlaylistID round trip", func(t *testing.T) {
		env := tempEnv(t)

		if err := env.SetPlaylistID("alice", "pl-7"); err != nil {
			t.Fatalf("SetPlaylistID() error: %v", err)
		}
		if id := env.PlaylistID("alice"); id != "pl-7" {
			t.Errorf("expected pl-7, got %q", id)
		}

		if err := env.SetPlaylistID("alice", "pl-8"); err != nil {
			t.Fatalf("SetPlaylistID() error: %v", err)
		}
		if id := env.PlaylistID("alice"); id != "pl-8" {
			t.Errorf("expected overwrite to pl-8, got %q", id)
		}
	})

	t.Run("environment shadows the file", func(t *testing.T) {
		env := tempEnv(t)

		if err := env.Enroll("alice", "tok-file"); err != nil {
			t.Fatalf("Enroll() error: %v", err)
		}

		t.Setenv("API_TOKEN_ALICE", "tok-env")
		if token := env.Token("alice"); token != "tok-env" {
			t.Errorf("expected environment token to win, got %q", token)
		}

		t.Setenv("NAMES", `["ONLY_ENV"]`)
		names, err := env.Names()
		if err != nil {
			t.Fatalf("Names() error: %v", err)
		}
		if len(names) != 1 || names[0] != "ONLY_ENV" {
			t.Errorf("expected environment NAMES to win, got %v", names)
		}
	})

	t.Run("malformed NAMES is an error", func(t *testing.T) {
		env := tempEnv(t)

		if err := os.WriteFile(env.Path(), []byte("NAMES=not-json\n"), 0644); err != nil {
			t.Fatalf("failed to seed env file: %v", err)
		}

		if _, err := env.Names(); err == nil {
			t.Error("expected error for malformed NAMES")
		}
		if err := env.Enroll("alice", "tok"); err == nil {
			t.Error("expected Enroll to refuse a malformed NAMES entry")
		}
	})
}

func TestKeyDerivation(t *testing.T) {
	if got := TokenKey("Zoé"); got != "API_TOKEN_ZOE" {
		t.Errorf("TokenKey(Zoé) = %q", got)
	}
	if got := PlaylistKey("mary jane"); got != "PLAYLIST_ID_MARY_JANE" {
		t.Errorf("PlaylistKey(mary jane) = %q", got)
	}
}

package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_MATCHER_KEY", "from-env")

	got, err := Load(Source{Name: "api key", File: path, Value: "inline", Env: "TEST_MATCHER_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadFallsBackToValueThenEnv(t *testing.T) {
	t.Setenv("TEST_MATCHER_KEY", " from-env ")

	got, err := Load(Source{Value: " inline ", Env: "TEST_MATCHER_KEY"})
	if err != nil || got != "inline" {
		t.Fatalf("expected inline secret, got %q (%v)", got, err)
	}

	got, err = Load(Source{Env: "TEST_MATCHER_KEY"})
	if err != nil || got != "from-env" {
		t.Fatalf("expected env secret, got %q (%v)", got, err)
	}
}

func TestLoadErrors(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cases := map[string]Source{
		"missing file":  {Name: "key", File: filepath.Join(t.TempDir(), "nope")},
		"empty file":    {Name: "key", File: empty},
		"unset env":     {Name: "key", Env: "TEST_MATCHER_UNSET_KEY"},
		"nothing given": {},
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(src); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

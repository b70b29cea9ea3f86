package git

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/compliance/pkg/config"
	"mercator-hq/compliance/pkg/rules"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const oneRule = `schema_version: "1.0"
rules:
  - rule_id: GIT_001
    name: Repository rule
    category: content
    required_keywords: [approved]
`

const twoRules = `schema_version: "1.0"
rules:
  - rule_id: GIT_001
    name: Repository rule
    category: content
    required_keywords: [approved]
  - rule_id: GIT_002
    name: Second rule
    category: legal
    forbidden_keywords: [draft]
`

// createRuleRepo initialises a repository with rules/rules.yaml committed.
func createRuleRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFile(t, repo, dir, "rules/rules.yaml", oneRule, "add rules")
	return repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content, msg string) {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add %s: %v", name, err)
	}
	_, err = worktree.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Rule Admin", Email: "rules@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func sourceConfig(repoDir, localDir string) config.GitConfig {
	return config.GitConfig{
		Repository: repoDir,
		Branch:     "master", // go-git init creates "master"
		Path:       "rules/rules.yaml",
		LocalPath:  localDir,
		Timeout:    10 * time.Second,
		Auth:       config.GitAuthConfig{Type: "none"},
	}
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.GitConfig
		wantErr bool
	}{
		{"missing repository", config.GitConfig{}, true},
		{"unknown auth", config.GitConfig{Repository: "https://example.com/r.git", Auth: config.GitAuthConfig{Type: "kerberos"}}, true},
		{"token without token", config.GitConfig{Repository: "https://example.com/r.git", Auth: config.GitAuthConfig{Type: "token"}}, true},
		{"defaults applied", config.GitConfig{Repository: "https://example.com/r.git"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			want := filepath.Join(config.DefaultGitLocalPath, config.DefaultGitPath)
			if src.RuleFile() != want {
				t.Errorf("RuleFile() = %q, want %q", src.RuleFile(), want)
			}
		})
	}
}

func TestSource_LoadClonesAndPulls(t *testing.T) {
	repoDir := t.TempDir()
	repo := createRuleRepo(t, repoDir)

	src, err := NewSource(sourceConfig(repoDir, filepath.Join(t.TempDir(), "clone")), testLogger())
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	store := rules.NewStore(testLogger())
	ctx := context.Background()

	result, err := src.Load(ctx, store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !result.Cloned || !result.RuleFileChanged {
		t.Errorf("first Load() result = %+v, want cloned", result)
	}
	if store.Snapshot().Len() != 1 || store.Snapshot().Source() != src.RuleFile() {
		t.Fatalf("store = %d rules from %q", store.Snapshot().Len(), store.Snapshot().Source())
	}
	version := store.Snapshot().Version()

	result, err = src.Load(ctx, store)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if result.RuleFileChanged || store.Snapshot().Version() != version {
		t.Errorf("unchanged repository should not republish rules (result %+v)", result)
	}

	commitFile(t, repo, repoDir, "rules/rules.yaml", twoRules, "add second rule")

	result, err = src.Load(ctx, store)
	if err != nil {
		t.Fatalf("third Load() error = %v", err)
	}
	if !result.RuleFileChanged || result.FromSHA == result.ToSHA {
		t.Errorf("result = %+v, want rule file change", result)
	}
	if store.Snapshot().Len() != 2 {
		t.Errorf("store has %d rules, want 2", store.Snapshot().Len())
	}

	commit, err := src.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if commit.SHA != result.ToSHA || commit.Author != "Rule Admin" || commit.Branch != "master" {
		t.Errorf("Current() = %+v", commit)
	}
}

func TestSource_UnrelatedCommitKeepsRules(t *testing.T) {
	repoDir := t.TempDir()
	repo := createRuleRepo(t, repoDir)

	src, err := NewSource(sourceConfig(repoDir, filepath.Join(t.TempDir(), "clone")), testLogger())
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	store := rules.NewStore(testLogger())
	if _, err := src.Load(context.Background(), store); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	version := store.Snapshot().Version()

	commitFile(t, repo, repoDir, "README.md", "rules", "docs")

	result, err := src.Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.RuleFileChanged {
		t.Error("README change should not mark the rule file changed")
	}
	if store.Snapshot().Version() != version {
		t.Error("rules republished for an unrelated commit")
	}
}

func TestSource_LoadUnavailableFallsBackToDefaults(t *testing.T) {
	src, err := NewSource(sourceConfig(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "clone")), testLogger())
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	store := rules.NewStore(testLogger())
	if err := store.Replace("test", nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if _, err := src.Load(context.Background(), store); err == nil {
		t.Fatal("Load() should fail for a missing repository")
	}
	if store.Snapshot().Source() != rules.SourceDefaults {
		t.Errorf("store source = %q, want defaults", store.Snapshot().Source())
	}
}

func TestSource_LoadUnavailableKeepsSnapshot(t *testing.T) {
	t.Run("existing clone", func(t *testing.T) {
		repoDir := t.TempDir()
		createRuleRepo(t, repoDir)

		src, err := NewSource(sourceConfig(repoDir, filepath.Join(t.TempDir(), "clone")), testLogger())
		if err != nil {
			t.Fatalf("NewSource() error = %v", err)
		}
		store := rules.NewStore(testLogger())
		if _, err := src.Load(context.Background(), store); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		version := store.Snapshot().Version()

		if err := os.RemoveAll(repoDir); err != nil {
			t.Fatal(err)
		}
		for range 3 {
			if _, err := src.Load(context.Background(), store); err == nil {
				t.Fatal("Load() should report the failed sync")
			}
		}
		snap := store.Snapshot()
		if snap.Version() != version {
			t.Errorf("version = %d, want %d", snap.Version(), version)
		}
		if snap.Source() != src.RuleFile() || snap.Len() != 1 {
			t.Errorf("snapshot = %s with %d rules, want the cloned rule file", snap.Source(), snap.Len())
		}
	})

	t.Run("no clone", func(t *testing.T) {
		src, err := NewSource(sourceConfig(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "clone")), testLogger())
		if err != nil {
			t.Fatalf("NewSource() error = %v", err)
		}
		store := rules.NewStore(testLogger())
		version := store.Snapshot().Version()

		for range 3 {
			if _, err := src.Load(context.Background(), store); err == nil {
				t.Fatal("Load() should fail for a missing repository")
			}
		}
		if store.Snapshot().Version() != version {
			t.Errorf("version = %d, want %d", store.Snapshot().Version(), version)
		}
	})
}

func TestSource_CurrentBeforeSync(t *testing.T) {
	src, err := NewSource(config.GitConfig{Repository: "https://example.com/r.git"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Current(); err == nil {
		t.Error("Current() before Sync should fail")
	}
}

func TestNewAuth(t *testing.T) {
	keyDir := t.TempDir()
	openKey := filepath.Join(keyDir, "id_open")
	if err := os.WriteFile(openKey, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		cfg       config.GitAuthConfig
		wantType  string
		wantErr   bool
		methodErr bool
	}{
		{name: "empty is none", cfg: config.GitAuthConfig{}, wantType: "none"},
		{name: "token", cfg: config.GitAuthConfig{Type: "token", Token: "ghp_x"}, wantType: "token"},
		{name: "ssh missing path", cfg: config.GitAuthConfig{Type: "ssh"}, wantErr: true},
		{name: "ssh missing file", cfg: config.GitAuthConfig{Type: "ssh", SSHKeyPath: filepath.Join(keyDir, "nope")}, wantType: "ssh", methodErr: true},
		{name: "ssh key too open", cfg: config.GitAuthConfig{Type: "ssh", SSHKeyPath: openKey}, wantType: "ssh", methodErr: true},
		{name: "unknown", cfg: config.GitAuthConfig{Type: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := NewAuth(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if auth.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", auth.Type(), tt.wantType)
			}
			_, err = auth.Method()
			if (err != nil) != tt.methodErr {
				t.Errorf("Method() error = %v, wantErr %v", err, tt.methodErr)
			}
		})
	}
}

func TestSource_LoadErrorWrapsConfigError(t *testing.T) {
	repoDir := t.TempDir()
	repo, err := gogit.PlainInit(repoDir, false)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, repoDir, "rules/rules.yaml", "rules: [", "broken")

	src, err := NewSource(sourceConfig(repoDir, filepath.Join(t.TempDir(), "clone")), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	store := rules.NewStore(testLogger())

	_, err = src.Load(context.Background(), store)
	var cfgErr *rules.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %v, want *rules.ConfigError", err)
	}
	if store.Snapshot().Source() != rules.SourceDefaults {
		t.Error("broken rule file should leave the default rules installed")
	}
}

package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"mercator-hq/compliance/pkg/config"
	"mercator-hq/compliance/pkg/rules"
)

// Commit describes the HEAD commit the rule file was read from.
type Commit struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// SyncResult reports what a Sync changed.
type SyncResult struct {
	FromSHA string
	ToSHA   string

	// Cloned is set when the local clone was created by this sync.
	Cloned bool

	// RuleFileChanged is set when the rule file differs between FromSHA
	// and ToSHA, or on a fresh clone.
	RuleFileChanged bool
}

// Source keeps a local clone of a rule repository and loads its rule file
// into a rules.Store.
type Source struct {
	config config.GitConfig
	auth   Auth
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewSource validates cfg and prepares a Source. Nothing is fetched until
// Sync or Load is called.
func NewSource(cfg config.GitConfig, logger *slog.Logger) (*Source, error) {
	if cfg.Repository == "" {
		return nil, errors.New("git repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = config.DefaultGitBranch
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultGitPath
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = config.DefaultGitLocalPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultGitTimeout
	}

	auth, err := NewAuth(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create git auth: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		config: cfg,
		auth:   auth,
		logger: logger.With("component", "rules.git", "repository", cfg.Repository),
	}, nil
}

// RuleFile is the path of the rule file inside the local clone.
func (s *Source) RuleFile() string {
	return filepath.Join(s.config.LocalPath, filepath.FromSlash(s.config.Path))
}

// Sync clones the repository on first use and pulls afterwards.
func (s *Source) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	method, err := s.auth.Method()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve git auth: %w", err)
	}

	if s.repo == nil {
		cloned, err := s.openOrClone(ctx, method)
		if err != nil {
			return nil, err
		}
		if cloned {
			head, err := s.head()
			if err != nil {
				return nil, err
			}
			s.logger.Info("rule repository cloned", "branch", s.config.Branch, "commit", head)
			return &SyncResult{ToSHA: head, Cloned: true, RuleFileChanged: true}, nil
		}
	}

	return s.pull(ctx, method)
}

func (s *Source) openOrClone(ctx context.Context, method transport.AuthMethod) (bool, error) {
	if _, err := os.Stat(filepath.Join(s.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.config.LocalPath)
		if err != nil {
			return false, fmt.Errorf("failed to open existing clone: %w", err)
		}
		s.repo = repo
		return false, nil
	}

	if err := os.MkdirAll(s.config.LocalPath, 0o755); err != nil {
		return false, fmt.Errorf("failed to create clone directory: %w", err)
	}
	repo, err := gogit.PlainCloneContext(ctx, s.config.LocalPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		Auth:          method,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to clone rule repository: %w", err)
	}
	s.repo = repo
	return true, nil
}

func (s *Source) pull(ctx context.Context, method transport.AuthMethod) (*SyncResult, error) {
	from, err := s.head()
	if err != nil {
		return nil, err
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          method,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull rule repository: %w", err)
	}

	to, err := s.head()
	if err != nil {
		return nil, err
	}
	result := &SyncResult{FromSHA: from, ToSHA: to}
	if from != to {
		result.RuleFileChanged, err = s.fileChanged(from, to)
		if err != nil {
			return nil, err
		}
		s.logger.Info("rule repository updated",
			"from", from,
			"to", to,
			"rule_file_changed", result.RuleFileChanged,
		)
	}
	return result, nil
}

func (s *Source) head() (string, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// fileChanged diffs the two commit trees and reports whether the rule file
// was touched.
func (s *Source) fileChanged(fromSHA, toSHA string) (bool, error) {
	from, err := s.repo.CommitObject(plumbing.NewHash(fromSHA))
	if err != nil {
		return false, fmt.Errorf("failed to get commit %s: %w", fromSHA, err)
	}
	to, err := s.repo.CommitObject(plumbing.NewHash(toSHA))
	if err != nil {
		return false, fmt.Errorf("failed to get commit %s: %w", toSHA, err)
	}
	fromTree, err := from.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree: %w", err)
	}
	toTree, err := to.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree: %w", err)
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return false, fmt.Errorf("failed to diff trees: %w", err)
	}

	target := filepath.ToSlash(filepath.Clean(s.config.Path))
	for _, change := range changes {
		if change.From.Name == target || change.To.Name == target {
			return true, nil
		}
	}
	return false, nil
}

// Current returns the HEAD commit of the local clone.
func (s *Source) Current() (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, errors.New("rule repository not synced")
	}
	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &Commit{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    s.config.Branch,
	}, nil
}

// Load syncs the repository and loads the rule file into store. When the
// sync fails but an earlier clone exists, the rule file of that clone is
// loaded and the sync error is returned alongside. Without any clone the
// store falls back to the default rules. A rule set that is already loaded
// from the same source is not republished.
func (s *Source) Load(ctx context.Context, store *rules.Store) (*SyncResult, error) {
	current := store.Snapshot().Source()

	result, syncErr := s.Sync(ctx)
	if syncErr != nil {
		if _, err := os.Stat(s.RuleFile()); err != nil {
			s.logger.Warn("rule repository unavailable, using default rules", "error", syncErr)
			if current != rules.SourceDefaults {
				store.LoadDefaults()
			}
			return nil, syncErr
		}
		s.logger.Warn("rule repository sync failed, using existing clone", "error", syncErr)
		if current == s.RuleFile() {
			return nil, syncErr
		}
		if err := store.Load(s.RuleFile()); err != nil {
			return nil, errors.Join(syncErr, err)
		}
		return nil, syncErr
	}

	if !result.Cloned && !result.RuleFileChanged && current == s.RuleFile() {
		return result, nil
	}
	return result, store.Load(s.RuleFile())
}

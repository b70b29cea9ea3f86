package git

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/compliance/pkg/config"
)

// Auth resolves the transport credentials for a rule repository.
type Auth interface {
	// Method returns the go-git auth method, or nil for anonymous access.
	Method() (transport.AuthMethod, error)

	// Type names the scheme for logging: "none", "token" or "ssh".
	Type() string
}

// NewAuth builds the Auth described by cfg.
func NewAuth(cfg config.GitAuthConfig) (Auth, error) {
	switch cfg.Type {
	case "", "none":
		return anonymous{}, nil
	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth requires a non-empty token")
		}
		return tokenAuth{token: cfg.Token}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh auth requires ssh_key_path")
		}
		return sshKeyAuth{keyPath: cfg.SSHKeyPath, passphrase: cfg.SSHKeyPassphrase}, nil
	default:
		return nil, fmt.Errorf("unknown git auth type %q", cfg.Type)
	}
}

type anonymous struct{}

func (anonymous) Method() (transport.AuthMethod, error) { return nil, nil }
func (anonymous) Type() string                          { return "none" }

// tokenAuth sends a personal access token as the HTTPS basic-auth password.
// GitHub, GitLab and Gitea ignore the user name.
type tokenAuth struct {
	token string
}

func (a tokenAuth) Method() (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: "git", Password: a.token}, nil
}

func (tokenAuth) Type() string { return "token" }

type sshKeyAuth struct {
	keyPath    string
	passphrase string
}

// Method loads the private key. Keys readable by group or others are
// rejected.
func (a sshKeyAuth) Method() (transport.AuthMethod, error) {
	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", perm)
	}

	keys, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return keys, nil
}

func (sshKeyAuth) Type() string { return "ssh" }

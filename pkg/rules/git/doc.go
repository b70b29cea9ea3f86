// Package git loads the compliance rule file from a Git repository.
//
// A Source keeps a local clone under rules.git.local_path. Load clones on
// first use, pulls afterwards and reloads the rules.Store only when the
// rule file changed between the old and new HEAD. If the remote is
// unreachable the last clone is used; without a clone the store keeps the
// built-in default rules.
//
//	src, err := git.NewSource(cfg.Rules.Git, logger)
//	if err != nil {
//		return err
//	}
//	if _, err := src.Load(ctx, store); err != nil {
//		logger.Warn("rule repository load incomplete", "error", err)
//	}
//
// Authentication is "none", "token" (HTTPS basic auth with a personal
// access token) or "ssh" (private key file, mode 0600 or stricter).
package git

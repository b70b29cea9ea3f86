package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-10-19"

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{"compliance 0.1.0-test", "Git Commit: abc123", "Build Date: 2026-10-19", runtime.Version()} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string][]string{
		"check":      nil,
		"project":    nil,
		"rules":      {"list", "show", "stats", "export", "validate"},
		"reports":    {"list", "get", "prune"},
		"watch":      nil,
		"version":    nil,
		"completion": nil,
	}

	for name, subs := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
			continue
		}
		for _, sub := range subs {
			if c, _, err := cmd.Find([]string{sub}); err != nil || c.Name() != sub {
				t.Errorf("command %q %q not registered", name, sub)
			}
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			completionCmd.SetOut(&out)
			if err := completionCmd.RunE(completionCmd, []string{shell}); err != nil {
				t.Fatalf("RunE: %v", err)
			}
			if out.Len() == 0 {
				t.Error("empty completion script")
			}
		})
	}
}

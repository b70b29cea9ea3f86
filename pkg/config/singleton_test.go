package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func resetGlobal() {
	configMutex.Lock()
	globalConfig = nil
	configMutex.Unlock()
	initOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "engine:\n  workers: 2\n")

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Engine.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Engine.Workers)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetGlobal()
	first := writeConfig(t, "engine:\n  workers: 2\n")
	second := writeConfig(t, "engine:\n  workers: 9\n")

	if err := Initialize(first); err != nil {
		t.Fatal(err)
	}
	_ = Initialize(second)

	if got := GetConfig().Engine.Workers; got != 2 {
		t.Errorf("second Initialize call should be ignored, workers = %d", got)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	resetGlobal()
	if GetConfig() != nil {
		t.Error("expected nil config before initialization")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetGlobal()
	defer func() {
		if recover() == nil {
			t.Error("expected panic when config not initialized")
		}
	}()
	MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	cfg := Default()
	cfg.Rules.Path = "/srv/rules.yaml"

	SetConfig(cfg)
	if got := MustGetConfig().Rules.Path; got != "/srv/rules.yaml" {
		t.Errorf("expected set config, got rules path %q", got)
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "engine:\n  workers: 1\n")
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("engine:\n  workers: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if got := GetConfig().Engine.Workers; got != 4 {
		t.Errorf("expected reloaded workers 4, got %d", got)
	}

	// A failed reload keeps the current configuration.
	if err := ReloadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error reloading missing file")
	}
	if got := GetConfig().Engine.Workers; got != 4 {
		t.Errorf("failed reload changed config, workers = %d", got)
	}
}

func TestGetConfig_Concurrent(t *testing.T) {
	resetGlobal()
	SetConfig(Default())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if GetConfig() == nil {
				t.Error("GetConfig returned nil")
			}
		}()
	}
	wg.Wait()
}

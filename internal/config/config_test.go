package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeDefaults(t *testing.T) {
	reset()
	tmp := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(tmp)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetInt("embedding_dimensions"); got != 384 {
		t.Errorf("embedding_dimensions default = %d, want 384", got)
	}
	if got := GetFloat64("cache_similarity_threshold"); got != 0.95 {
		t.Errorf("cache_similarity_threshold default = %v, want 0.95", got)
	}
}

func TestEnvOverride(t *testing.T) {
	reset()
	tmp := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(tmp)

	os.Setenv("MEMORIA_BATCH_MAX_SIZE", "250")
	defer os.Unsetenv("MEMORIA_BATCH_MAX_SIZE")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetInt("batch_max_size"); got != 250 {
		t.Errorf("batch_max_size = %d, want 250 (env override)", got)
	}
}

func TestSetRejectsStructuralKey(t *testing.T) {
	reset()
	tmp := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(tmp)
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := Set("embedding_dimensions", 512); err == nil {
		t.Error("expected Set to reject a structural key")
	}
	if err := Set("cache_max_size", 42); err != nil {
		t.Errorf("Set of a non-structural key should succeed: %v", err)
	}
}

func TestProjectConfigFileTakesPrecedence(t *testing.T) {
	reset()
	tmp := t.TempDir()
	beadsDir := filepath.Join(tmp, ".memoria")
	os.MkdirAll(beadsDir, 0o755)
	os.WriteFile(filepath.Join(beadsDir, "config.yaml"), []byte("batch_max_size: 17\n"), 0o644)

	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(tmp)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetInt("batch_max_size"); got != 17 {
		t.Errorf("batch_max_size = %d, want 17 from project config file", got)
	}
}

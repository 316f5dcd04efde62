package infra

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_PATH", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.JobQueue != "generation.jobs" {
		t.Fatalf("JobQueue mismatch: got %q", cfg.JobQueue)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("WorkerConcurrency mismatch: got %d", cfg.WorkerConcurrency)
	}
	if cfg.StorageBaseURL != "" {
		t.Fatalf("StorageBaseURL should stay empty without STORAGE_PATH, got %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigDerivesStorageBaseURLFromPort(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_PATH", "/var/lib/worker/media")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitStorageBaseURL(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/var/lib/worker/media")
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "https://cdn.example.com/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
}

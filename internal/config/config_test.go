package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.OverlapFraction != 0.25 {
		t.Fatalf("expected default overlap 0.25, got %v", cfg.Audio.OverlapFraction)
	}
	if len(cfg.ASR.Engines) != 1 || cfg.ASR.Engines[0] != "mock" {
		t.Fatalf("expected default engine chain [mock], got %v", cfg.ASR.Engines)
	}
	if cfg.Connection.IdleTimeoutS != 300 {
		t.Fatalf("expected default idle timeout 300s, got %d", cfg.Connection.IdleTimeoutS)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEINSIGHT_AUDIO_SAMPLE_RATE", "8000")
	t.Setenv("SEINSIGHT_AUDIO_WINDOW_SECONDS", "1.5")
	t.Setenv("SEINSIGHT_ASR_ENGINES", "google, mock")
	t.Setenv("SEINSIGHT_ASR_MAX_PROCESSING_TIME_MS", "2500")
	t.Setenv("SEINSIGHT_CONNECTION_IDLE_TIMEOUT_S", "120")
	t.Setenv("SEINSIGHT_TERMS_PERSIST", "true")
	t.Setenv("SEINSIGHT_TERMS_STORE_PATH", "./tmp-terms.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Audio.SampleRate != 8000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.WindowSeconds != 1.5 {
		t.Fatalf("expected window seconds override, got %v", cfg.Audio.WindowSeconds)
	}
	if len(cfg.ASR.Engines) != 2 || cfg.ASR.Engines[0] != "google" || cfg.ASR.Engines[1] != "mock" {
		t.Fatalf("expected engine chain override, got %v", cfg.ASR.Engines)
	}
	if cfg.ASR.MaxProcessingMS != 2500 {
		t.Fatalf("expected processing timeout override, got %d", cfg.ASR.MaxProcessingMS)
	}
	if cfg.Connection.IdleTimeoutS != 120 {
		t.Fatalf("expected idle timeout override, got %d", cfg.Connection.IdleTimeoutS)
	}
	if !cfg.Terms.Persist || cfg.Terms.StorePath != "./tmp-terms.db" {
		t.Fatalf("expected term store overrides, got persist=%v path=%s", cfg.Terms.Persist, cfg.Terms.StorePath)
	}
}

func TestValidateRejectsUnknownEngine(t *testing.T) {
	t.Setenv("SEINSIGHT_ASR_ENGINES", "sphinx")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown engine name")
	}
}

func TestValidateWhisperRequiresCommand(t *testing.T) {
	t.Setenv("SEINSIGHT_ASR_ENGINES", "whisper,mock")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when whisper engine has no command")
	}
}

func TestValidateOverlapRange(t *testing.T) {
	t.Setenv("SEINSIGHT_AUDIO_OVERLAP_FRACTION", "1.0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for overlap fraction of 1.0")
	}
}

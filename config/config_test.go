package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.FFmpegPath == "" {
		t.Error("expected FFmpegPath to be set")
	}
	if cfg.TruePeakCeiling != -1.0 {
		t.Errorf("expected TruePeakCeiling -1.0, got %f", cfg.TruePeakCeiling)
	}
	if cfg.MaxAttempts != 8 {
		t.Errorf("expected MaxAttempts 8, got %d", cfg.MaxAttempts)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("expected SampleRate 44100, got %d", cfg.SampleRate)
	}
	if cfg.MP3Bitrate != "320k" {
		t.Errorf("expected MP3Bitrate 320k, got %s", cfg.MP3Bitrate)
	}
	if cfg.AACBitrate != "256k" {
		t.Errorf("expected AACBitrate 256k, got %s", cfg.AACBitrate)
	}
	if cfg.ProcessTimeout != 10*time.Minute {
		t.Errorf("expected ProcessTimeout 10m, got %s", cfg.ProcessTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "/opt/bin/ffmpeg")
	t.Setenv("TRUE_PEAK_CEILING", "-2.0")
	t.Setenv("MAX_ATTEMPTS", "4")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()

	if cfg.FFmpegPath != "/opt/bin/ffmpeg" {
		t.Errorf("expected overridden FFmpegPath, got %s", cfg.FFmpegPath)
	}
	if cfg.TruePeakCeiling != -2.0 {
		t.Errorf("expected TruePeakCeiling -2.0, got %f", cfg.TruePeakCeiling)
	}
	if cfg.MaxAttempts != 4 {
		t.Errorf("expected MaxAttempts 4, got %d", cfg.MaxAttempts)
	}
	if !cfg.MinioUseSSL {
		t.Error("expected MinioUseSSL true")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("TRUE_PEAK_CEILING", "loud")
	t.Setenv("MAX_ATTEMPTS", "many")

	cfg := Load()

	if cfg.TruePeakCeiling != -1.0 {
		t.Errorf("malformed float should fall back to default, got %f", cfg.TruePeakCeiling)
	}
	if cfg.MaxAttempts != 8 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.MaxAttempts)
	}
}

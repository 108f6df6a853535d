package config

import (
	"os"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvTGAPIID   = "TG_API_ID"
	testEnvTGAPIHash = "TG_API_HASH"
	testEnvTGChatID  = "TG_CHAT_ID"
	testEnvOpenAIKey = "OPENAI_API_KEY"
)

// Test values.
const (
	testTGAPIID   = "12345"
	testTGAPIHash = "abcdef123456"
	testTGChatID  = "-1001234567890"
	testOpenAIKey = "sk-test"
	testErrLoad   = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvTGAPIID, testTGAPIID)
	t.Setenv(testEnvTGAPIHash, testTGAPIHash)
	t.Setenv(testEnvTGChatID, testTGChatID)
	t.Setenv(testEnvOpenAIKey, testOpenAIKey)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvTGAPIID)
	os.Unsetenv(testEnvTGAPIHash)
	os.Unsetenv(testEnvTGChatID)
	os.Unsetenv(testEnvOpenAIKey)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.TGAPIID != 12345 {
		t.Errorf("TGAPIID = %d, want %d", cfg.TGAPIID, 12345)
	}

	if cfg.TGChatID != -1001234567890 {
		t.Errorf("TGChatID = %d, want %d", cfg.TGChatID, -1001234567890)
	}

	if cfg.OpenAIAPIKey != testOpenAIKey {
		t.Errorf("OpenAIAPIKey = %q, want %q", cfg.OpenAIAPIKey, testOpenAIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q, want %q", cfg.OpenAIModel, "gpt-4o-mini")
	}

	if cfg.OpenAIImageModel != "dall-e-3" {
		t.Errorf("OpenAIImageModel = %q, want %q", cfg.OpenAIImageModel, "dall-e-3")
	}

	if cfg.MaxMessages != 50 {
		t.Errorf("MaxMessages = %d, want 50", cfg.MaxMessages)
	}

	if cfg.MaxURLs != 10 {
		t.Errorf("MaxURLs = %d, want 10", cfg.MaxURLs)
	}

	if !cfg.GenerateImages {
		t.Error("GenerateImages should default to true")
	}

	if cfg.WebFetchTimeout != 30*time.Second {
		t.Errorf("WebFetchTimeout = %v, want 30s", cfg.WebFetchTimeout)
	}

	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.RetentionDays)
	}
}

func TestLoad_ZeroChatID(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvTGChatID, "0")

	_, err := Load()
	if err == nil {
		t.Error("expected error for zero chat ID")
	}
}

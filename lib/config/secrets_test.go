// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSecretsFromEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-from-env")
	t.Setenv("PORT", "8123")

	secrets, err := LoadSecrets("")
	if err != nil {
		t.Fatalf("LoadSecrets failed: %v", err)
	}
	if secrets.DiscordToken != "token-from-env" || secrets.Port != 8123 {
		t.Errorf("secrets = %+v", secrets)
	}
}

func TestLoadSecretsDefaultPort(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	secrets, err := LoadSecrets(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("LoadSecrets failed: %v", err)
	}
	if secrets.Port != 3000 {
		t.Errorf("expected port=3000, got %d", secrets.Port)
	}
}

func TestLoadSecretsRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_TOKEN_FILE", "")

	if _, err := LoadSecrets(""); err == nil {
		t.Error("LoadSecrets without a token succeeded")
	}
}

func TestLoadSecretsFromDotenv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")
	t.Setenv("PORT", "9000")

	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, []byte("DISCORD_TOKEN=token-from-file\nPORT=1234\n"), 0600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}

	secrets, err := LoadSecrets(dotenv)
	if err != nil {
		t.Fatalf("LoadSecrets failed: %v", err)
	}
	if secrets.DiscordToken != "token-from-file" {
		t.Errorf("expected token from .env, got %q", secrets.DiscordToken)
	}
	if secrets.Port != 9000 {
		t.Errorf("expected the environment to win over .env, got port %d", secrets.Port)
	}
}

func TestLoadSecretsFromTokenFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	tokenPath := filepath.Join(t.TempDir(), "discord_token")
	if err := os.WriteFile(tokenPath, []byte("token-from-mount\n"), 0600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}
	t.Setenv("DISCORD_TOKEN_FILE", tokenPath)

	secrets, err := LoadSecrets("")
	if err != nil {
		t.Fatalf("LoadSecrets failed: %v", err)
	}
	token, err := secrets.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	defer token.Close()
	if token.String() != "token-from-mount" {
		t.Errorf("expected token from file, got %q", token.String())
	}
}

func TestTokenClearsEnvironmentCopy(t *testing.T) {
	secrets := Secrets{DiscordToken: "token-from-env"}
	token, err := secrets.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	defer token.Close()
	if token.String() != "token-from-env" {
		t.Errorf("token = %q", token.String())
	}
	if secrets.DiscordToken != "" {
		t.Error("DiscordToken still set after Token")
	}
}

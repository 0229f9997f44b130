// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/bureau-foundation/warden/lib/secret"
)

// Secrets are the values that never appear in the config file.
type Secrets struct {
	// DiscordToken authenticates the bot.
	DiscordToken string `env:"DISCORD_TOKEN"`

	// DiscordTokenFile names a file holding the token, such as a mounted
	// container secret. It wins over DiscordToken.
	DiscordTokenFile string `env:"DISCORD_TOKEN_FILE"`

	// Port is the keep-alive port hosting platforms assign.
	Port int `env:"PORT" envDefault:"3000"`
}

// LoadSecrets reads secrets from the process environment. When
// dotenvPath names an existing file, its variables are loaded first;
// variables already set in the environment take precedence. A missing
// dotenv file is not an error.
func LoadSecrets(dotenvPath string) (Secrets, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("loading %s: %w", dotenvPath, err)
		}
	}
	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return Secrets{}, fmt.Errorf("reading secrets: %w", err)
	}
	if secrets.DiscordToken == "" && secrets.DiscordTokenFile == "" {
		return Secrets{}, errors.New("reading secrets: DISCORD_TOKEN or DISCORD_TOKEN_FILE is required")
	}
	return secrets, nil
}

// Token moves the bot token into locked memory and clears DiscordToken.
// The caller closes the returned buffer.
func (s *Secrets) Token() (*secret.Buffer, error) {
	if s.DiscordTokenFile != "" {
		return secret.ReadFile(s.DiscordTokenFile)
	}
	token, err := secret.FromString(s.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("DISCORD_TOKEN: %w", err)
	}
	s.DiscordToken = ""
	return token, nil
}

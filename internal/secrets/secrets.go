// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and
// from the environment. Each file in the directory represents one secret:
// the filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: exa-api-key, anthropic-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names a secret and the environment variable that can supply it.
type Key struct {
	File string
	Env  string
}

// Known keys.
var (
	ExaAPIKey       = Key{File: "exa-api-key", Env: "EXA_API_KEY"}
	AnthropicAPIKey = Key{File: "anthropic-api-key", Env: "ANTHROPIC_API_KEY"}
	OpenAIAPIKey    = Key{File: "openai-api-key", Env: "OPENAI_API_KEY"}
)

// Keys lists the known keys in display order.
var Keys = []Key{ExaAPIKey, AnthropicAPIKey, OpenAIAPIKey}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotenv loads the given .env files into the process environment
// without overriding variables that are already set. Missing files are
// skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("checking %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Lookup returns the value for k: the key file wins over the environment
// variable.
func Lookup(files map[string]string, k Key) string {
	if v := files[k.File]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(k.Env))
}

// Mask shows the first and last four characters of a secret.
func Mask(value string) string {
	if value == "" {
		return "Not set"
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}

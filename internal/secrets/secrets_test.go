// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIKeyFile, "  sk-abc123  \n")
				return dir
			},
			want: map[string]string{
				OpenAIKeyFile: "sk-abc123",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIKeyFile, "sk-valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				OpenAIKeyFile: "sk-valid",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, OpenAIKeyFile, "sk-real")
				return dir
			},
			want: map[string]string{
				OpenAIKeyFile: "sk-real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
				writeFile(t, dir, OpenAIKeyFile, "sk-real")
				return dir
			},
			want: map[string]string{
				OpenAIKeyFile: "sk-real",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAIKey(t *testing.T) {
	loaded := map[string]string{OpenAIKeyFile: "sk-file"}

	tests := []struct {
		name      string
		flagValue string
		envValue  string
		loaded    map[string]string
		want      string
	}{
		{"flag wins", "sk-flag", "sk-env", loaded, "sk-flag"},
		{"env beats file", "", "sk-env", loaded, "sk-env"},
		{"file fallback", "", "", loaded, "sk-file"},
		{"nothing configured", "", "", map[string]string{}, ""},
		{"nil map", "", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OpenAIKey(tt.flagValue, tt.envValue, tt.loaded))
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

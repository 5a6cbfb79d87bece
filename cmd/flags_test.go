package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	allowed := []string{"text", "json"}
	assert.NoError(t, ValidateFormat("json", allowed))
	assert.NoError(t, ValidateFormat("TEXT", allowed))
	assert.ErrorContains(t, ValidateFormat("xml", allowed), "text, json")
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0", false},
		{"7331", false},
		{"65535", false},
		{"65536", true},
		{"-1", true},
		{"http", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidatePort(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scene.yml")
	require.NoError(t, os.WriteFile(file, []byte("root: x\n"), 0o644))

	assert.NoError(t, ValidateFileExists(file))
	assert.ErrorContains(t, ValidateFileExists(dir), "directory")
	assert.ErrorContains(t, ValidateFileExists(filepath.Join(dir, "none.yml")), "does not exist")
}

func TestAddFlagValidation(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("format", "text", "")
	AddFlagValidation(cmd, "format", func(v string) error {
		return ValidateFormat(v, []string{"text", "json"})
	})
	AddFlagValidation(cmd, "missing", nil)

	require.NoError(t, cmd.Flags().Set("format", "json"))
	got, err := cmd.Flags().GetString("format")
	require.NoError(t, err)
	assert.Equal(t, "json", got)

	assert.Error(t, cmd.Flags().Set("format", "xml"))
	got, _ = cmd.Flags().GetString("format")
	assert.Equal(t, "json", got, "rejected values are not stored")
}

func TestSceneArg(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scene.yml")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cmd := &cobra.Command{}

	assert.NoError(t, sceneArg(cmd, []string{file}))
	assert.Error(t, sceneArg(cmd, nil))
	assert.Error(t, sceneArg(cmd, []string{file, file}))
	assert.Error(t, sceneArg(cmd, []string{file + ".missing"}))
}

package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCompletion(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "# bash completion V2 for gpuhot"},
		{"zsh", "#compdef gpuhot"},
		{"fish", "complete -c gpuhot"},
		{"powershell", "Register-ArgumentCompleter"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			root := &cobra.Command{Use: "gpuhot"}
			var buf bytes.Buffer
			require.NoError(t, writeCompletion(root, tt.shell, &buf))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	err := completionCmd.Args(completionCmd, []string{"tcsh"})
	assert.Error(t, err)
}

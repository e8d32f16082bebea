package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "slipdesk", cmd.Use)
	assert.Contains(t, cmd.Long, "correlate")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"submit"}, {"manual"}, {"search"}, {"report"}, {"options"}, {"logout"},
		{"fields", "show"}, {"fields", "reset"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestSubmitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	submitCmd, _, err := cmd.Find([]string{"submit"})
	require.NoError(t, err)

	fieldFlag := submitCmd.Flags().Lookup("field")
	require.NotNil(t, fieldFlag)
	assert.Equal(t, "f", fieldFlag.Shorthand)
	assert.Equal(t, "stringArray", fieldFlag.Value.Type())

	typeFlag := submitCmd.Flags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "", typeFlag.DefValue)
}

func TestSearchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	searchCmd, _, err := cmd.Find([]string{"search"})
	require.NoError(t, err)

	for _, name := range []string{"limit", "offset", "sort", "live"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "false", searchCmd.Flags().Lookup("live").DefValue)
}

func TestReportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	reportCmd, _, err := cmd.Find([]string{"report"})
	require.NoError(t, err)

	assert.Equal(t, "hoy", reportCmd.Flags().Lookup("preset").DefValue)
	assert.Equal(t, "true", reportCmd.Flags().Lookup("pdf").DefValue)
	assert.Equal(t, "false", reportCmd.Flags().Lookup("xlsx").DefValue)
	for _, name := range []string{"start", "end", "out", "no-download"} {
		assert.NotNil(t, reportCmd.Flags().Lookup(name), name)
	}
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	assert.Contains(t, cmd.Short, "slipdesk")
	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		assert.NotEmpty(t, sub.Short, "command %s should have a short description", sub.Name())
	}
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

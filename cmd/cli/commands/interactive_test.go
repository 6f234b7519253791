package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []string
	}{
		{"plain words", "autoAssign e1 e2 --preview", []string{"autoAssign", "e1", "e2", "--preview"}},
		{"extra whitespace", "  editSeries   root-1  ", []string{"editSeries", "root-1"}},
		{"double quotes", `createSeries --name "Sunday Service"`, []string{"createSeries", "--name", "Sunday Service"}},
		{"single quotes keep json", `editSeries r --pattern '{"type":"weekly"}'`, []string{"editSeries", "r", "--pattern", `{"type":"weekly"}`}},
		{"quotes inside a word", `--start="2024-01-07 10:00"`, []string{"--start=2024-01-07 10:00"}},
		{"empty quoted argument", `editSeries r --description ""`, []string{"editSeries", "r", "--description", ""}},
		{"empty line", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseCommandLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestParseCommandLine_UnclosedQuote(t *testing.T) {
	_, err := parseCommandLine(`createSeries --name "Sunday Service`)
	assert.EqualError(t, err, `unclosed quote: "`)

	_, err = parseCommandLine(`createSeries --name 'x`)
	assert.EqualError(t, err, "unclosed quote: '")
}

func TestRunSession_ResetsFlagsBetweenLines(t *testing.T) {
	type call struct {
		args    []string
		roles   []string
		preview bool
	}
	var calls []call

	cmd := &cobra.Command{
		Use:  "record <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roles, _ := cmd.Flags().GetStringArray("role")
			preview, _ := cmd.Flags().GetBool("preview")
			calls = append(calls, call{args: args, roles: roles, preview: preview})
			return nil
		},
	}
	cmd.Flags().StringArray("role", nil, "")
	cmd.Flags().Bool("preview", false, "")

	input := strings.Join([]string{
		"record a --role Piano --role 'Vocals:2' --preview",
		"record b",
		"record",
		"unknown x",
		"record c --role Organ",
		"exit",
		"record never",
	}, "\n")

	err := runSession(strings.NewReader(input), map[string]*cobra.Command{"record": cmd})
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, call{args: []string{"a"}, roles: []string{"Piano", "Vocals:2"}, preview: true}, calls[0])
	assert.Equal(t, []string{"b"}, calls[1].args)
	assert.Empty(t, calls[1].roles)
	assert.False(t, calls[1].preview)
	assert.Equal(t, []string{"Organ"}, calls[2].roles)
}

func TestRunCommand_ReturnsRunError(t *testing.T) {
	cmd := &cobra.Command{
		Use: "fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("boom")
		},
	}

	assert.EqualError(t, runCommand(cmd, nil), "boom")
}

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapseq/internal/cli"
	"github.com/leapstack-labs/leapseq/internal/cli/config"
	"github.com/leapstack-labs/leapseq/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version", "-o", "text"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "leapseq v")
}

func TestExpandProject(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"expand", filepath.Join("templates", "consts.seq"), "-o", "text", "--pretty"})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"const C0: u8 = 0;",
		"const C1: u8 = 1;",
		"const C2: u8 = 2;",
	}, lines)
}

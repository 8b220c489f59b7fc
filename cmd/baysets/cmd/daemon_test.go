package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonStatusCmd_NotRunning_ReportsStopped(t *testing.T) {
	cmd := newDaemonStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "not running")
}

func TestDaemonStatusCmd_JSON_NotRunning(t *testing.T) {
	cmd := newDaemonStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "\"running\": false")
}

func TestDaemonStopCmd_NotRunning_NoError(t *testing.T) {
	cmd := newDaemonStopCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "not running")
}

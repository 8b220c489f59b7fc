package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baysets/baysets/internal/preflight"
)

func TestDoctorCmd_PlainOutput(t *testing.T) {
	dir := t.TempDir()
	cmd := newDoctorCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "System Check")
}

func TestDoctorCmd_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	cmd := newDoctorCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "\"status\"")
}

func TestStatusToString_AllStatuses(t *testing.T) {
	assert.Equal(t, "pass", statusToString(preflight.StatusPass))
	assert.Equal(t, "warn", statusToString(preflight.StatusWarn))
	assert.Equal(t, "fail", statusToString(preflight.StatusFail))
}

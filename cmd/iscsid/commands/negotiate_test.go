package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNegotiate_IncomingOfferFixture(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "login.txt")
	require.NoError(t, os.WriteFile(fixture, []byte(
		"# comment lines and blanks are ignored\n\nSessionType=Normal\nInitialR2T=No\n",
	), 0o600))

	cfgFile = ""
	cmd := GetRootCmd()
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs([]string{"negotiate", fixture})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "InitialR2T=No")
	assert.Contains(t, out.String(), "# status=ok")
}

func TestReadFixture_SkipsBlanksAndComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("A=1\n\n# skip\nB=2\n"), 0o600))

	lines, err := readFixture(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A=1", "B=2"}, lines)
}

func TestPackFixture_MalformedLine(t *testing.T) {
	_, err := packFixture([]string{"NoEquals"})
	assert.Error(t, err)
}

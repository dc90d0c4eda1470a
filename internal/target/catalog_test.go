package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_RegistersStandardKeys(t *testing.T) {
	t.Parallel()

	cat, err := DefaultCatalog()
	require.NoError(t, err)

	for _, key := range []string{
		"AuthMethod", "HeaderDigest", "DataDigest", "MaxConnections",
		"InitialR2T", "ImmediateData", "MaxBurstLength", "FirstBurstLength",
		"MaxRecvDataSegmentLength", "DataPDUInOrder", "DataSequenceInOrder",
		"MaxOutstandingR2T", "ErrorRecoveryLevel", "SessionType",
		"TargetName", "TargetAlias", "InitiatorName", "InitiatorAlias",
		"TargetPortalGroupTag", "AuthResult",
		"CHAP_A", "CHAP_I", "CHAP_C", "CHAP_N", "CHAP_R",
	} {
		_, err := cat.Get(key)
		assert.NoErrorf(t, err, "expected key %q to be registered", key)
	}
}

func TestDefaultCatalog_DefaultsAreSane(t *testing.T) {
	t.Parallel()

	cat, err := DefaultCatalog()
	require.NoError(t, err)

	n, err := cat.ValueAsInt("MaxConnections")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := cat.ValueEquals("InitialR2T", "Yes")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cat.ValueEquals("AuthMethod", "None")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cat.ValueEquals("HeaderDigest", "No")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cat.ValueEquals("DataDigest", "No")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefaultCatalog_FreshInstancePerCall(t *testing.T) {
	t.Parallel()

	cat1, err := DefaultCatalog()
	require.NoError(t, err)
	cat2, err := DefaultCatalog()
	require.NoError(t, err)

	assert.NotSame(t, cat1, cat2)
}

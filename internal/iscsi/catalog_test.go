package iscsi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat := NewCatalog()
	require.NoError(t, cat.Add(Declarative, "TargetName", "", ""))
	require.NoError(t, cat.Add(Numerical, "MaxConnections", "1", "1"))
	require.NoError(t, cat.Add(BinaryOr, "InitialR2T", "Yes", "Yes,No"))
	require.NoError(t, cat.Add(DeclareMulti, "TargetAddress", "", ""))
	return cat
}

func TestCatalog_AddDuplicateKey(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t)
	err := cat.Add(Declarative, "TargetName", "", "")
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestCatalog_AddUnknownType(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	err := cat.Add(ParamType(99), "X", "", "")
	assert.ErrorIs(t, err, ErrUnknownParamType)
}

func TestCatalog_AddBadBinaryValid(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	err := cat.Add(BinaryOr, "ImmediateData", "Yes", "Maybe")
	assert.ErrorIs(t, err, ErrBadBinaryValid)
}

func TestCatalog_GetNotFound(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t)
	_, err := cat.Get("DoesNotExist")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestCatalog_ValueAsInt_Lenient(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	require.NoError(t, cat.Add(Numerical, "MaxOutstandingR2T", "8", "8"))

	p, err := cat.Get("MaxOutstandingR2T")
	require.NoError(t, err)
	p.history[0] = "42abc"

	n, err := cat.ValueAsInt("MaxOutstandingR2T")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestCatalog_ValueAsInt_NoLeadingDigitsIsZero(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	require.NoError(t, cat.Add(Numerical, "X", "0", "0"))
	p, err := cat.Get("X")
	require.NoError(t, err)
	p.history[0] = "abc"

	n, err := cat.ValueAsInt("X")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCatalog_ResetClearsHistoryOnNextDeleteAllValues(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t)
	require.NoError(t, cat.Reset("TargetAddress"))
	require.NoError(t, cat.deleteAllValues("TargetAddress"))

	n, err := cat.ValueCount("TargetAddress")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCatalog_Dump(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	require.NoError(t, cat.Add(Declarative, "A", "1", ""))
	require.NoError(t, cat.Add(Declarative, "B", "2", ""))

	var sb strings.Builder
	require.NoError(t, cat.Dump(&sb))
	assert.Equal(t, "A=1\nB=2\n", sb.String())
}

func TestParamType_String(t *testing.T) {
	t.Parallel()

	cases := map[ParamType]string{
		Declarative:  "Declarative",
		DeclareMulti: "DeclareMulti",
		BinaryOr:     "BinaryOr",
		BinaryAnd:    "BinaryAnd",
		Numerical:    "Numerical",
		NumericalZ:   "NumericalZ",
		List:         "List",
		ParamType(-1): "Unknown",
	}
	for typ, want := range cases {
		assert.Equal(t, want, typ.String())
	}
}

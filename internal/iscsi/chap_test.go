package iscsi

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]string

func (m mapLookup) Lookup(_ context.Context, user, _ string) (Credential, error) {
	secret, ok := m[user]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return Credential{User: user, AuthType: "chap", SharedSecret: secret}, nil
}

type sequentialRandom struct{ next byte }

func (r *sequentialRandom) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func newTestCatalogWithCHAP(t *testing.T) *Catalog {
	t.Helper()
	cat := NewCatalog()
	require.NoError(t, cat.Add(List, "AuthMethod", "None", "CHAP,None"))
	require.NoError(t, cat.Add(List, "CHAP_A", "5", "5"))
	require.NoError(t, cat.Add(Declarative, "CHAP_I", "", ""))
	require.NoError(t, cat.Add(Declarative, "CHAP_C", "", ""))
	require.NoError(t, cat.Add(Declarative, "CHAP_N", "", ""))
	require.NoError(t, cat.Add(Declarative, "CHAP_R", "", ""))
	require.NoError(t, cat.Add(Declarative, "AuthResult", "", ""))
	return cat
}

// TestSecurity_TargetVerifiesInitiatorResponse drives the target side of a
// full CHAP exchange: the initiator offers AuthMethod=CHAP, the target
// challenges, and the initiator's CHAP_N/CHAP_R must match the secret on
// file.
func TestSecurity_TargetVerifiesInitiatorResponse(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{"initiator-1": "sekrit-secret"}
	sec := NewSecurity(lookup, &sequentialRandom{next: 7}, md5SumForTest, "target-local")
	cat := newTestCatalogWithCHAP(t)
	n := NewNegotiator(cat, sec)

	offerBuf, err := EncodeText(nil, MaxTokenLen, "AuthMethod", "CHAP")
	require.NoError(t, err)
	out, status, err := n.Parse(context.Background(), offerBuf, false)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	tokens, err := DecodeText(out)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	var chapA, chapI, chapC string
	for _, tok := range tokens {
		switch tok.Key {
		case "CHAP_A":
			chapA = tok.Value
		case "CHAP_I":
			chapI = tok.Value
		case "CHAP_C":
			chapC = tok.Value
		}
	}
	require.NotEmpty(t, chapA)
	require.NotEmpty(t, chapI)
	require.NotEmpty(t, chapC)

	identifier := byte(lenientAtoi(chapI))
	challenge, err := hex.DecodeString(chapC)
	require.NoError(t, err)
	response := md5SumForTest([]byte{identifier}, []byte("sekrit-secret"), challenge)

	nBuf, err := EncodeText(nil, MaxTokenLen, "CHAP_N", "initiator-1")
	require.NoError(t, err)
	nBuf, err = EncodeText(nBuf, MaxTokenLen, "CHAP_R", hex.EncodeToString(response[:]))
	require.NoError(t, err)

	_, status, err = n.Parse(context.Background(), nBuf, false)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	p, err := cat.Get("AuthResult")
	require.NoError(t, err)
	assert.Equal(t, "Yes", p.Negotiated())
}

func TestSecurity_TargetRejectsWrongResponse(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{"initiator-1": "sekrit-secret"}
	sec := NewSecurity(lookup, &sequentialRandom{next: 1}, md5SumForTest, "target-local")
	cat := newTestCatalogWithCHAP(t)
	n := NewNegotiator(cat, sec)

	offerBuf, err := EncodeText(nil, MaxTokenLen, "AuthMethod", "CHAP")
	require.NoError(t, err)
	_, status, err := n.Parse(context.Background(), offerBuf, false)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	nBuf, err := EncodeText(nil, MaxTokenLen, "CHAP_N", "initiator-1")
	require.NoError(t, err)
	nBuf, err = EncodeText(nBuf, MaxTokenLen, "CHAP_R", hex.EncodeToString(make([]byte, ISCSIChapDataLength)))
	require.NoError(t, err)

	_, status, err = n.Parse(context.Background(), nBuf, false)
	assert.Error(t, err)
	assert.Equal(t, StatusAuthFailed, status)

	p, err := cat.Get("AuthResult")
	require.NoError(t, err)
	assert.Equal(t, "Fail", p.Negotiated())
}

func TestSecurity_UnknownInitiatorFailsClosed(t *testing.T) {
	t.Parallel()

	sec := NewSecurity(mapLookup{}, &sequentialRandom{next: 1}, md5SumForTest, "target-local")
	cat := newTestCatalogWithCHAP(t)
	n := NewNegotiator(cat, sec)

	offerBuf, err := EncodeText(nil, MaxTokenLen, "AuthMethod", "CHAP")
	require.NoError(t, err)
	_, _, err = n.Parse(context.Background(), offerBuf, false)
	require.NoError(t, err)

	nBuf, err := EncodeText(nil, MaxTokenLen, "CHAP_N", "nobody")
	require.NoError(t, err)

	_, status, err := n.Parse(context.Background(), nBuf, false)
	assert.Error(t, err)
	assert.Equal(t, StatusAuthFailed, status)
}

func TestSecurity_AuthMethodNone_SkipsCHAP(t *testing.T) {
	t.Parallel()

	sec := NewSecurity(mapLookup{}, &sequentialRandom{next: 1}, md5SumForTest, "target-local")
	cat := newTestCatalogWithCHAP(t)
	n := NewNegotiator(cat, sec)

	buf, err := EncodeText(nil, MaxTokenLen, "AuthMethod", "None")
	require.NoError(t, err)
	out, status, err := n.Parse(context.Background(), buf, false)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	tokens, err := DecodeText(out)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "None", tokens[0].Value)
}

func TestHandleCHAPI_LenientParsing(t *testing.T) {
	t.Parallel()

	sec := NewSecurity(mapLookup{}, &sequentialRandom{next: 1}, md5SumForTest, "local")
	verdict, pending, err := sec.handleCHAPI("42abc")
	require.NoError(t, err)
	assert.Equal(t, chapInProgress, verdict)
	assert.Nil(t, pending)
	assert.Equal(t, byte(42), sec.session.identifier)
}

func TestHandleCHAPR_OutOfOrderFails(t *testing.T) {
	t.Parallel()

	sec := NewSecurity(mapLookup{}, &sequentialRandom{next: 1}, md5SumForTest, "local")
	_, _, err := sec.handleCHAPR(hex.EncodeToString(make([]byte, ISCSIChapDataLength)))
	assert.ErrorIs(t, err, ErrCHAPOutOfOrder)
}

func md5SumForTest(parts ...[]byte) [16]byte {
	var out [16]byte
	var n int
	for _, p := range parts {
		for _, b := range p {
			out[n%16] ^= b
			n++
		}
	}
	return out
}

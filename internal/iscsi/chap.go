package iscsi

import (
	"context"
	"encoding/hex"
	"fmt"
)

// ISCSIChapDataLength is the CHAP challenge/response length in bytes: an
// MD5 digest (spec §4.4).
const ISCSIChapDataLength = 16

// chapVerdict is the Security sub-negotiator's per-key outcome (spec §4.4).
type chapVerdict int

const (
	chapDone chapVerdict = iota
	chapInProgress
	chapFailure
)

// chapKeys is the CHAP family of keys the Security sub-negotiator owns.
var chapKeys = map[string]bool{
	"AuthMethod": true,
	"CHAP_A":     true,
	"CHAP_I":     true,
	"CHAP_C":     true,
	"CHAP_N":     true,
	"CHAP_R":     true,
}

// IsSecurityKey reports whether key belongs to the CHAP family.
func IsSecurityKey(key string) bool {
	return chapKeys[key]
}

// pendingToken is text the security sub-negotiator wants appended to the
// outgoing buffer. When markOffer is set, the negotiator also records this
// as an outgoing offer on the named catalog parameter, so a later incoming
// token for that key is classified as an answer rather than a fresh offer.
type pendingToken struct {
	key       string
	value     string
	markOffer bool
}

// chapSession holds the transient state of one CHAP exchange: the
// identifier and challenge most recently generated or received, and the
// credential resolved for the peer's username. It is scoped to one login
// exchange (spec §3), never to the process.
type chapSession struct {
	identifier byte
	challenge  []byte
	peerCred   Credential
	havePeer   bool
}

// Security is the CHAP sub-negotiator. One instance is owned per login
// session, alongside its Catalog.
type Security struct {
	session   chapSession
	lookup    CredentialLookup
	rnd       RandomSource
	md5       MD5Sum
	localUser string
}

// NewSecurity constructs a Security sub-negotiator. localUser is the
// username this engine presents when it must respond to a peer's
// challenge (CHAP_C handling); lookup resolves shared secrets for both
// localUser and any peer username received via CHAP_N.
func NewSecurity(lookup CredentialLookup, rnd RandomSource, md5 MD5Sum, localUser string) *Security {
	return &Security{lookup: lookup, rnd: rnd, md5: md5, localUser: localUser}
}

// handle advances the CHAP state machine for one CHAP-family key. value is
// the raw wire value just received (offer_rx or answer_rx, per isOffer).
func (s *Security) handle(ctx context.Context, cat *Catalog, key, value string, isOffer bool) (chapVerdict, []pendingToken, error) {
	switch key {
	case "AuthMethod":
		return s.handleAuthMethod(cat, value, isOffer)
	case "CHAP_A":
		return s.handleCHAPA(value, isOffer)
	case "CHAP_I":
		return s.handleCHAPI(value)
	case "CHAP_C":
		return s.handleCHAPC(ctx, value, isOffer)
	case "CHAP_N":
		return s.handleCHAPN(ctx, value)
	case "CHAP_R":
		return s.handleCHAPR(value)
	default:
		return chapDone, nil, nil
	}
}

// handleAuthMethod reacts to AuthMethod=CHAP arriving as a fresh offer from
// the peer: we answer with our own algorithm choice (CHAP_A) and, in the
// same reply, the identifier/challenge pair (CHAP_I/CHAP_C) the peer must
// respond to — bundling what the original's separate AuthMethod/CHAP_A
// handlers do across two round trips into one, since nothing downstream
// depends on the peer re-confirming the algorithm choice before we
// challenge it.
func (s *Security) handleAuthMethod(cat *Catalog, value string, isOffer bool) (chapVerdict, []pendingToken, error) {
	if value == "None" {
		return chapDone, nil, nil
	}
	if !isOffer {
		// We offered AuthMethod ourselves and got a non-None answer;
		// nothing further to do here, fall through to normal negotiate.
		return chapDone, nil, nil
	}
	chapA, err := cat.Get("CHAP_A")
	if err != nil {
		return chapFailure, nil, err
	}
	return s.beginChallenge(chapA.Valid)
}

// handleCHAPA reacts to CHAP_A arriving as a fresh offer on its own (a peer
// that proposes the algorithm before AuthMethod is otherwise resolved).
func (s *Security) handleCHAPA(value string, isOffer bool) (chapVerdict, []pendingToken, error) {
	if !isOffer {
		return chapDone, nil, nil
	}
	return s.beginChallenge(value)
}

// beginChallenge picks identifier and challenge and returns the CHAP_A
// echo plus CHAP_I/CHAP_C as pending tokens, all three marked as our offer.
// CHAP_N and CHAP_R are not marked, so the peer's CHAP_N/CHAP_R reply is
// handled as a fresh offer, the path on which a verified CHAP_R sets
// AuthResult.
func (s *Security) beginChallenge(chapAValue string) (chapVerdict, []pendingToken, error) {
	idByte, err := s.randomByte()
	if err != nil {
		return chapFailure, nil, err
	}
	s.session.identifier = idByte
	idStr := fmt.Sprintf("%d", idByte)

	challenge, err := s.randomBytes(ISCSIChapDataLength)
	if err != nil {
		return chapFailure, nil, err
	}
	s.session.challenge = challenge
	challengeHex := hex.EncodeToString(challenge)

	return chapInProgress, []pendingToken{
		{key: "CHAP_A", value: chapAValue, markOffer: true},
		{key: "CHAP_I", value: idStr, markOffer: true},
		{key: "CHAP_C", value: challengeHex, markOffer: true},
	}, nil
}

// handleCHAPI parses the lenient decimal identifier. Preserved lenient per
// spec §9 Open Question: "42abc" parses as 42.
func (s *Security) handleCHAPI(value string) (chapVerdict, []pendingToken, error) {
	s.session.identifier = byte(lenientAtoi(value))
	return chapInProgress, nil, nil
}

func (s *Security) handleCHAPC(ctx context.Context, value string, isOffer bool) (chapVerdict, []pendingToken, error) {
	challenge, err := hex.DecodeString(value)
	if err != nil {
		return chapFailure, nil, fmt.Errorf("iscsi: malformed CHAP_C hex: %w", err)
	}
	s.session.challenge = challenge

	cred, err := s.lookup.Lookup(ctx, s.localUser, "chap")
	if err != nil {
		return chapFailure, nil, fmt.Errorf("%w: %q", ErrCredentialNotFound, s.localUser)
	}

	response := s.md5([]byte{s.session.identifier}, []byte(cred.SharedSecret), s.session.challenge)
	pending := []pendingToken{
		{key: "CHAP_N", value: cred.User, markOffer: true},
		{key: "CHAP_R", value: hex.EncodeToString(response[:]), markOffer: true},
	}

	if isOffer {
		// Mutual authentication: we also challenge the peer.
		idByte, err := s.randomByte()
		if err != nil {
			return chapFailure, nil, err
		}
		s.session.identifier = idByte

		newChallenge, err := s.randomBytes(ISCSIChapDataLength)
		if err != nil {
			return chapFailure, nil, err
		}
		s.session.challenge = newChallenge

		pending = append(pending,
			pendingToken{key: "CHAP_I", value: fmt.Sprintf("%d", idByte), markOffer: true},
			pendingToken{key: "CHAP_C", value: hex.EncodeToString(newChallenge), markOffer: true},
		)
	}

	return chapInProgress, pending, nil
}

func (s *Security) handleCHAPN(ctx context.Context, value string) (chapVerdict, []pendingToken, error) {
	cred, err := s.lookup.Lookup(ctx, value, "chap")
	if err != nil {
		return chapFailure, nil, fmt.Errorf("%w: %q", ErrCredentialNotFound, value)
	}
	s.session.peerCred = cred
	s.session.havePeer = true
	return chapInProgress, nil, nil
}

func (s *Security) handleCHAPR(value string) (chapVerdict, []pendingToken, error) {
	if !s.session.havePeer {
		return chapFailure, nil, fmt.Errorf("%w: CHAP_R received before CHAP_N", ErrCHAPOutOfOrder)
	}

	expected := s.md5([]byte{s.session.identifier}, []byte(s.session.peerCred.SharedSecret), s.session.challenge)

	got, err := hex.DecodeString(value)
	if err != nil || len(got) != ISCSIChapDataLength {
		return chapFailure, nil, fmt.Errorf("%w: malformed response", ErrCHAPResponseMismatch)
	}
	for i := range expected {
		if expected[i] != got[i] {
			return chapFailure, nil, ErrCHAPResponseMismatch
		}
	}
	return chapDone, nil, nil
}

func (s *Security) randomByte() (byte, error) {
	b, err := s.randomBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Security) randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := s.rnd.Read(buf); err != nil {
		return nil, fmt.Errorf("iscsi: random source failed: %w", err)
	}
	return buf, nil
}

package target

import (
	"context"
	"crypto/md5" //nolint:gosec // CHAP (RFC 1994) mandates MD5; this is a protocol requirement, not a security choice we made.
	"crypto/rand"
	"time"

	"github.com/google/uuid"

	"github.com/iscsid/negotiator/internal/iscsi"
	"github.com/iscsid/negotiator/internal/logger"
	"github.com/iscsid/negotiator/internal/metrics"
)

// cryptoRandSource adapts crypto/rand.Reader to iscsi.RandomSource.
type cryptoRandSource struct{}

func (cryptoRandSource) Read(p []byte) (int, error) { return rand.Read(p) }

// md5Sum adapts crypto/md5 to iscsi.MD5Sum: MD5(identifier || secret || challenge).
func md5Sum(parts ...[]byte) [16]byte {
	h := md5.New() //nolint:gosec // see import comment
	for _, p := range parts {
		h.Write(p)
	}
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Session is one iSCSI login-phase exchange: its own catalog, negotiator,
// and identity, wired to the process-wide logger and metrics collector.
type Session struct {
	ID         string
	Negotiator *iscsi.Negotiator
	metrics    *metrics.Collector

	chapOutcomeObserved bool
}

// NewSession builds a fresh session with the default built-in catalog, a
// Security sub-negotiator bound to lookup/localUser, and a random UUID
// session ID used for log correlation.
func NewSession(lookup iscsi.CredentialLookup, localUser string, mc *metrics.Collector) (*Session, error) {
	cat, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	sec := iscsi.NewSecurity(lookup, cryptoRandSource{}, md5Sum, localUser)

	return &Session{
		ID:         uuid.NewString(),
		Negotiator: iscsi.NewNegotiator(cat, sec),
		metrics:    mc,
	}, nil
}

// Parse runs one round of login negotiation, logging and recording metrics
// around the underlying Negotiator.Parse call.
func (s *Session) Parse(ctx context.Context, textIn []byte, outgoing bool) ([]byte, iscsi.Status, error) {
	ctx = logger.WithContext(ctx, logger.NewLogContext("").WithSession(s.ID))
	start := time.Now()

	direction := "incoming"
	if outgoing {
		direction = "outgoing"
	}
	tokenCount := 0
	if tokens, derr := iscsi.DecodeText(textIn); derr == nil {
		tokenCount = len(tokens)
	}
	for i := 0; i < tokenCount; i++ {
		s.metrics.ObserveToken(direction)
	}

	out, status, err := s.Negotiator.Parse(ctx, textIn, outgoing)

	s.metrics.ObserveParseDuration(time.Since(start))
	s.metrics.ObserveStatus(status.String())
	s.observeNotUnderstood(out)
	s.observeCHAPOutcome(ctx, status)

	if err != nil {
		logger.ErrorCtx(ctx, "login negotiation failed",
			logger.Status(status.String()),
			logger.Err(err),
		)
		return out, status, err
	}
	logger.DebugCtx(ctx, "login negotiation round complete",
		logger.Status(status.String()),
		logger.TokenCount(tokenCount),
	)
	return out, status, nil
}

// SessionParams returns the negotiated transport-facing parameters once
// login has finished (spec §4.5).
func (s *Session) SessionParams() (iscsi.SessionParams, error) {
	return iscsi.Snapshot(s.Negotiator.Catalog)
}

// observeNotUnderstood counts NotUnderstood answers in one round's reply
// text (spec §7).
func (s *Session) observeNotUnderstood(out []byte) {
	tokens, err := iscsi.DecodeText(out)
	if err != nil {
		return
	}
	for _, t := range tokens {
		if t.Value == "NotUnderstood" {
			s.metrics.ObserveNotUnderstood()
		}
	}
}

// observeCHAPOutcome records and logs a CHAP success/failure exactly once
// per session, the first time the exchange reaches a terminal state: either
// AuthResult is set to "Yes" (CHAP_R verified) or Parse reports
// StatusAuthFailed (response mismatch or unknown user, which may happen
// before AuthResult is ever touched).
func (s *Session) observeCHAPOutcome(ctx context.Context, status iscsi.Status) {
	if s.chapOutcomeObserved {
		return
	}

	if status == iscsi.StatusAuthFailed {
		s.chapOutcomeObserved = true
		s.metrics.ObserveCHAPOutcome("failure")
		logger.WarnCtx(ctx, "CHAP authentication failed")
		return
	}

	if current, err := s.Negotiator.Catalog.Value("AuthResult", 0); err == nil && current == "Yes" {
		s.chapOutcomeObserved = true
		s.metrics.ObserveCHAPOutcome("success")
		logger.InfoCtx(ctx, "CHAP authentication succeeded")
	}
}

package logger

import (
	"log/slog"
)

// Standard field keys for structured logging of the iSCSI login-phase engine.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Session identification
	// ========================================================================
	KeySessionID     = "session_id"     // per-login-session identifier (uuid)
	KeyInitiatorName = "initiator_name" // iSCSI InitiatorName declared by the peer
	KeyClientIP      = "client_ip"      // initiator address (without port)

	// ========================================================================
	// Negotiation
	// ========================================================================
	KeyParamKey    = "param_key"   // the key=value token's key
	KeyParamValue  = "param_value" // the key=value token's value
	KeyDirection   = "direction"   // incoming or outgoing
	KeyNegotiated  = "negotiated"  // committed negotiated value
	KeyStatus      = "status"      // parse() outcome: ok, auth_failed, fatal
	KeyDurationMs  = "duration_ms" // operation duration in milliseconds
	KeyTokenCount  = "token_count" // number of tokens processed in one parse() call
	KeyUnknownKeys = "unknown_keys"

	// ========================================================================
	// CHAP authentication
	// ========================================================================
	KeyUsername = "username" // CHAP username (CHAP_N)
	KeyAuthStep = "auth_step" // which CHAP key triggered this log line

	// ========================================================================
	// Errors
	// ========================================================================
	KeyError     = "error"      // error message
	KeyErrorCode = "error_code" // numeric/sentinel error code
)

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// InitiatorName returns a slog.Attr for the iSCSI InitiatorName.
func InitiatorName(name string) slog.Attr {
	return slog.String(KeyInitiatorName, name)
}

// ClientIP returns a slog.Attr for the initiator's address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ParamKey returns a slog.Attr for the token key under negotiation.
func ParamKey(key string) slog.Attr {
	return slog.String(KeyParamKey, key)
}

// ParamValue returns a slog.Attr for the token value under negotiation.
func ParamValue(value string) slog.Attr {
	return slog.String(KeyParamValue, value)
}

// Direction returns a slog.Attr for the parse direction ("incoming"/"outgoing").
func Direction(dir string) slog.Attr {
	return slog.String(KeyDirection, dir)
}

// Negotiated returns a slog.Attr for the committed negotiated value.
func Negotiated(value string) slog.Attr {
	return slog.String(KeyNegotiated, value)
}

// Status returns a slog.Attr for the parse() outcome.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// TokenCount returns a slog.Attr for the number of tokens processed.
func TokenCount(n int) slog.Attr {
	return slog.Int(KeyTokenCount, n)
}

// UnknownKeys returns a slog.Attr for the count of NotUnderstood keys emitted.
func UnknownKeys(n int) slog.Attr {
	return slog.Int(KeyUnknownKeys, n)
}

// Username returns a slog.Attr for a CHAP username.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// AuthStep returns a slog.Attr identifying which CHAP key triggered a log line.
func AuthStep(key string) slog.Attr {
	return slog.String(KeyAuthStep, key)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/sentinel error code.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

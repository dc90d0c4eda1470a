package iscsi

import (
	"context"
	"fmt"
)

// Negotiator drives one login session's text-parameter exchange against a
// Catalog, delegating the CHAP family of keys to an embedded Security
// sub-negotiator. One Negotiator is owned per session; it is not safe for
// concurrent use (spec §5).
type Negotiator struct {
	Catalog  *Catalog
	Security *Security
}

// NewNegotiator pairs a catalog with its security sub-negotiator.
func NewNegotiator(cat *Catalog, sec *Security) *Negotiator {
	return &Negotiator{Catalog: cat, Security: sec}
}

// Parse processes one block of packed key=value tokens and returns the
// reply text to send back on the wire, if any.
//
// outgoing selects which side of the exchange textIn represents:
//   - outgoing=true: textIn is a block of NEW offers this engine wants to
//     declare (e.g. at session start). Declarative/DeclareMulti keys commit
//     immediately; other types wait for the peer's answer.
//   - outgoing=false: textIn is text received from the peer. Tokens already
//     offered by us are treated as answers and committed; unseen tokens are
//     treated as fresh offers: declarative keys are committed without an
//     answer, other types are answered and committed in the same call, and
//     CHAP-family keys are routed through the Security sub-negotiator first.
//
// Status follows the engine's three-way outcome (spec §1, §7): StatusOK,
// StatusAuthFailed (CHAP exchange failed, login must be aborted), or
// StatusFatal (malformed wire data or an internal catalog error).
func (n *Negotiator) Parse(ctx context.Context, textIn []byte, outgoing bool) ([]byte, Status, error) {
	tokens, err := DecodeText(textIn)
	if err != nil {
		return nil, StatusFatal, err
	}

	var out []byte
	const capacity = MaxTokenLen

	for _, tok := range tokens {
		if tok.Oversized {
			if outgoing {
				continue
			}
			out, err = EncodeText(out, capacity, tok.Key, "NotUnderstood")
			if err != nil {
				return out, StatusFatal, err
			}
			continue
		}

		param, perr := n.Catalog.Get(tok.Key)
		if perr != nil {
			if outgoing {
				continue
			}
			out, err = EncodeText(out, capacity, tok.Key, "NotUnderstood")
			if err != nil {
				return out, StatusFatal, err
			}
			continue
		}

		// The value-length guard only applies once the key is resolved
		// (spec §4.3 orders lookup before the length check): an oversized
		// value on an unrecognized key must still answer NotUnderstood,
		// not abort the call.
		if len(tok.Value)+1 > MaxValueLen {
			return out, StatusFatal, fmt.Errorf("%w: key %q, %d bytes", ErrValueTooLong, tok.Key, len(tok.Value)+1)
		}

		var status Status
		out, status, err = n.parseOne(ctx, param, tok.Value, outgoing, out, capacity)
		if err != nil {
			return out, status, err
		}
	}

	return out, StatusOK, nil
}

func (n *Negotiator) parseOne(ctx context.Context, param *Parameter, value string, outgoing bool, out []byte, capacity int) ([]byte, Status, error) {
	switch {
	case outgoing && !param.txOffer:
		return n.freshLocalOffer(param, value, out, capacity)
	case !outgoing && param.txOffer:
		return n.incomingAnswer(ctx, param, value, out, capacity)
	case !outgoing && !param.txOffer:
		return n.incomingOffer(ctx, param, value, out, capacity)
	default:
		// outgoing=true with a prior offer already pending is not a
		// reachable role in this engine's two-step offer/answer model.
		return out, StatusFatal, fmt.Errorf("%w: %s", ErrUnexpectedDirection, param.Key)
	}
}

// freshLocalOffer declares one of our own values as a new offer.
func (n *Negotiator) freshLocalOffer(param *Parameter, value string, out []byte, capacity int) ([]byte, Status, error) {
	param.clearDirectionFlags()
	param.offerTx = value
	param.txOffer = true

	if value == "?" {
		return out, StatusOK, nil
	}
	if param.Type == Declarative || param.Type == DeclareMulti {
		n.commit(param, value)
	}
	return out, StatusOK, nil
}

// incomingAnswer commits the peer's answer to a key we previously offered.
func (n *Negotiator) incomingAnswer(ctx context.Context, param *Parameter, value string, out []byte, capacity int) ([]byte, Status, error) {
	param.clearDirectionFlags()
	param.answerRx = value
	param.rxAnswer = true

	if IsSecurityKey(param.Key) {
		verdict, pending, err := n.Security.handle(ctx, n.Catalog, param.Key, value, false)
		switch verdict {
		case chapFailure:
			return out, StatusAuthFailed, err
		case chapInProgress:
			return n.emitPending(out, capacity, pending)
		}
	}

	if param.offerTx == "?" {
		// This was the answer to our own inquiry: informational only.
		return out, StatusOK, nil
	}

	negotiated, status, err := n.negotiateAnswerSide(param, value)
	if err != nil {
		return out, status, err
	}
	n.commit(param, negotiated)
	return out, StatusOK, nil
}

// incomingOffer handles a fresh offer from the peer: declarative keys are
// committed without an answer, other types are answered and committed, and
// an inquiry ("?") is answered with the current value without committing.
func (n *Negotiator) incomingOffer(ctx context.Context, param *Parameter, value string, out []byte, capacity int) ([]byte, Status, error) {
	param.clearDirectionFlags()
	param.offerRx = value
	param.rxOffer = true

	if IsSecurityKey(param.Key) {
		verdict, pending, err := n.Security.handle(ctx, n.Catalog, param.Key, value, true)
		switch verdict {
		case chapFailure:
			n.setAuthResult("Fail")
			return out, StatusAuthFailed, err
		case chapInProgress:
			return n.emitPending(out, capacity, pending)
		case chapDone:
			if param.Key == "CHAP_R" {
				// Only a completed response verification is a genuine
				// auth success; AuthMethod=None and other no-op
				// dispatches also return chapDone but never touched
				// AuthResult.
				n.setAuthResult("Yes")
			}
		}
	}

	if value == "?" {
		cur, err := n.Catalog.Value(param.Key, 0)
		if err != nil {
			return out, StatusFatal, err
		}
		out, err = EncodeText(out, capacity, param.Key, cur)
		if err != nil {
			return out, StatusFatal, err
		}
		return out, StatusOK, nil
	}

	if param.Type == Declarative || param.Type == DeclareMulti {
		n.commit(param, value)
		return out, StatusOK, nil
	}

	answer, status, err := n.generateAnswer(param, value)
	if err != nil {
		return out, status, err
	}
	out, err = EncodeText(out, capacity, param.Key, answer)
	if err != nil {
		return out, StatusFatal, err
	}
	param.answerTx = answer
	param.txAnswer = true

	negotiated, status, err := n.negotiateOfferSide(param, value, answer)
	if err != nil {
		return out, status, err
	}
	n.commit(param, negotiated)
	return out, StatusOK, nil
}

func (n *Negotiator) emitPending(out []byte, capacity int, pending []pendingToken) ([]byte, Status, error) {
	var err error
	for _, p := range pending {
		out, err = EncodeText(out, capacity, p.key, p.value)
		if err != nil {
			return out, StatusFatal, err
		}
		if p.markOffer {
			if dst, derr := n.Catalog.Get(p.key); derr == nil {
				dst.clearDirectionFlags()
				dst.offerTx = p.value
				dst.txOffer = true
			}
		}
	}
	return out, StatusOK, nil
}

func (n *Negotiator) setAuthResult(value string) {
	if p, err := n.Catalog.Get("AuthResult"); err == nil {
		if len(p.history) == 0 {
			p.history = append(p.history, value)
		} else {
			p.history[0] = value
		}
		p.negotiated = value
	}
}

// generateAnswer produces the answer text for a freshly-offered non-
// declarative key (spec §4.3 step 5).
func (n *Negotiator) generateAnswer(param *Parameter, offer string) (string, Status, error) {
	switch param.Type {
	case BinaryOr, BinaryAnd:
		switch offer {
		case "Yes", "No", "yes", "no":
		default:
			return "Reject", StatusOK, nil
		}
		if containsComma(param.Valid) {
			return offer, StatusOK, nil
		}
		return param.Valid, StatusOK, nil

	case List:
		return n.answerList(param, offer)

	case Numerical, NumericalZ:
		offerI := lenientAtoi(offer)
		maxI := lenientAtoi(param.Valid)
		return fmt.Sprintf("%d", clampNumerical(param.Type, offerI, maxI)), StatusOK, nil

	default:
		return "", StatusFatal, fmt.Errorf("%w: %s", ErrUnknownParamType, param.Type)
	}
}

// answerList implements the List answer algorithm, including the
// Default-in-offer preference (so a peer offering "CHAP,None" gets "None"
// back when that is our configured default, matching known initiator
// interop expectations) and the empty-valid-list fallback.
func (n *Negotiator) answerList(param *Parameter, offer string) (string, Status, error) {
	offered := splitComma(offer)

	if param.Default != "" && containsString(offered, param.Default) {
		return param.Default, StatusOK, nil
	}

	valid := splitComma(param.Valid)
	if len(valid) == 0 {
		return offered[0], StatusOK, nil
	}

	for _, v := range offered {
		if containsString(valid, v) {
			return v, StatusOK, nil
		}
	}
	return "Reject", StatusOK, nil
}

// negotiateOfferSide commits a value we just answered on the peer's offer,
// using the "outgoing" role's value pairing (spec §4.3 step 6).
func (n *Negotiator) negotiateOfferSide(param *Parameter, offer, answer string) (string, Status, error) {
	switch param.Type {
	case BinaryOr:
		return binaryNegotiate(offer, answer, false), StatusOK, nil
	case BinaryAnd:
		return binaryNegotiate(offer, answer, true), StatusOK, nil
	case Numerical, NumericalZ:
		v1, v2 := lenientAtoi(offer), lenientAtoi(answer)
		return fmt.Sprintf("%d", clampNumerical(param.Type, v1, v2)), StatusOK, nil
	case List:
		// Already validated against Valid/sentinels during answer
		// generation.
		return answer, StatusOK, nil
	default:
		return "", StatusFatal, fmt.Errorf("%w: %s", ErrUnknownParamType, param.Type)
	}
}

// negotiateAnswerSide commits the peer's answer to a key we offered,
// using the "incoming answer" role's value pairing (spec §4.3 step 6).
func (n *Negotiator) negotiateAnswerSide(param *Parameter, answer string) (string, Status, error) {
	switch param.Type {
	case Declarative, DeclareMulti:
		return answer, StatusOK, nil
	case BinaryOr:
		return binaryNegotiate(answer, param.offerTx, false), StatusOK, nil
	case BinaryAnd:
		return binaryNegotiate(answer, param.offerTx, true), StatusOK, nil
	case Numerical, NumericalZ:
		v1, v2 := lenientAtoi(answer), lenientAtoi(param.offerTx)
		return fmt.Sprintf("%d", clampNumerical(param.Type, v1, v2)), StatusOK, nil
	case List:
		if isListSentinel(answer) {
			return answer, StatusOK, nil
		}
		valid := splitComma(param.Valid)
		if !containsString(valid, answer) {
			return "", StatusFatal, fmt.Errorf("%w: %q not in %q", ErrListAnswerNotValid, answer, param.Valid)
		}
		return answer, StatusOK, nil
	default:
		return "", StatusFatal, fmt.Errorf("%w: %s", ErrUnknownParamType, param.Type)
	}
}

// commit stores negotiated as param's current value, applying any pending
// Reset and the DeclareMulti append-vs-overwrite history rule (spec §4.3
// step 7).
func (n *Negotiator) commit(param *Parameter, negotiated string) {
	param.negotiated = negotiated

	if param.reset {
		param.history = param.history[:0]
		param.reset = false
	}

	if param.Type == DeclareMulti {
		param.history = append(param.history, negotiated)
		return
	}
	if len(param.history) == 0 {
		param.history = append(param.history, negotiated)
		return
	}
	param.history[0] = negotiated
}

func binaryNegotiate(a, b string, and bool) string {
	isYes := func(s string) bool { return s == "Yes" || s == "yes" }
	if and {
		if isYes(a) && isYes(b) {
			return "Yes"
		}
		return "No"
	}
	if isYes(a) || isYes(b) {
		return "Yes"
	}
	return "No"
}

func clampNumerical(typ ParamType, a, b int) int {
	if typ == NumericalZ {
		switch {
		case a == 0:
			return b
		case b == 0:
			return a
		}
	}
	if a > b {
		return b
	}
	return a
}

func isListSentinel(v string) bool {
	switch v {
	case "None", "Reject", "Irrelevant", "NotUnderstood":
		return true
	default:
		return false
	}
}

func containsComma(s string) bool {
	for _, r := range s {
		if r == ',' {
			return true
		}
	}
	return false
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Package iscsi implements the iSCSI login-phase text-parameter negotiation
// engine, including its embedded CHAP authentication state machine. See
// SPEC_FULL.md for the full requirements this package implements.
package iscsi

import (
	"fmt"
	"io"
	"strings"
)

// ParamType classifies how a key's value is negotiated.
type ParamType int

const (
	// Declarative keys are announced, not negotiated: the sender's value
	// is final.
	Declarative ParamType = iota
	// DeclareMulti is a declarative key that may be declared multiple
	// times, building an ordered list in the value history.
	DeclareMulti
	// BinaryOr negotiates to "Yes" iff either side offered "Yes".
	BinaryOr
	// BinaryAnd negotiates to "Yes" iff both sides offered "Yes".
	BinaryAnd
	// Numerical negotiates to the minimum of the two integer offers.
	Numerical
	// NumericalZ is Numerical where 0 means "no limit".
	NumericalZ
	// List negotiates to the first mutually acceptable value in a
	// comma-separated enumeration.
	List
)

func (t ParamType) String() string {
	switch t {
	case Declarative:
		return "Declarative"
	case DeclareMulti:
		return "DeclareMulti"
	case BinaryOr:
		return "BinaryOr"
	case BinaryAnd:
		return "BinaryAnd"
	case Numerical:
		return "Numerical"
	case NumericalZ:
		return "NumericalZ"
	case List:
		return "List"
	default:
		return "Unknown"
	}
}

// binaryValidStrings are the eight valid-field spellings allowed for
// BinaryOr/BinaryAnd parameters.
var binaryValidStrings = map[string]bool{
	"Yes": true, "No": true,
	"yes": true, "no": true,
	"Yes,No": true, "No,Yes": true,
	"yes,no": true, "no,yes": true,
}

// Parameter is one entry in the Catalog: its type, default, validity spec,
// transient negotiation slots, and an ordered value history.
type Parameter struct {
	Key     string
	Type    ParamType
	Default string
	Valid   string

	// negotiation slots and role flags. They persist between tokens and
	// between Parse calls, so a later token for this key can be matched
	// against an earlier offer.
	offerTx string
	offerRx string
	answerTx string
	answerRx string
	negotiated string

	txOffer  bool
	rxOffer  bool
	txAnswer bool
	rxAnswer bool
	reset    bool

	history []string
}

// Negotiated returns the value committed by the most recent successful
// negotiation pass for this key, or "" if none has committed yet.
func (p *Parameter) Negotiated() string {
	return p.negotiated
}

// clearDirectionFlags resets the four mutually-exclusive directional flags.
// The negotiator calls it before setting the flag for the token at hand, so
// at most one is true; that flag stays set after the token is processed and
// decides how the next token for this key is classified.
func (p *Parameter) clearDirectionFlags() {
	p.txOffer = false
	p.rxOffer = false
	p.txAnswer = false
	p.rxAnswer = false
}

// Catalog is the ordered registry of recognized keys for one login session.
// Iteration order equals insertion order, and that order is part of the
// contract (debug dumps and the wire text printer depend on it).
type Catalog struct {
	order []*Parameter
	index map[string]int
}

// NewCatalog returns an empty catalog ready for Add calls.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Add appends a new parameter to the catalog. Fails if typ is not one of
// the recognized ParamType values, if a Binary type is given a valid field
// outside the eight allowed strings, or if key is already registered.
func (c *Catalog) Add(typ ParamType, key, dflt, valid string) error {
	if _, exists := c.index[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}

	switch typ {
	case Declarative, DeclareMulti, Numerical, NumericalZ, List:
		// valid is unrestricted syntax for these types.
	case BinaryOr, BinaryAnd:
		if !binaryValidStrings[valid] {
			return fmt.Errorf("%w: %q", ErrBadBinaryValid, valid)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownParamType, int(typ))
	}

	p := &Parameter{
		Key:     key,
		Type:    typ,
		Default: dflt,
		Valid:   valid,
		history: []string{dflt},
	}
	c.index[key] = len(c.order)
	c.order = append(c.order, p)
	return nil
}

// Get returns the parameter registered under key.
func (c *Catalog) Get(key string) (*Parameter, error) {
	i, ok := c.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return c.order[i], nil
}

// Value returns the which-th entry in key's value history.
func (c *Catalog) Value(key string, which int) (string, error) {
	p, err := c.Get(key)
	if err != nil {
		return "", err
	}
	if which < 0 || which >= len(p.history) {
		return "", fmt.Errorf("%w: key %q index %d", ErrValueIndexOOB, key, which)
	}
	return p.history[which], nil
}

// ValueAsInt parses the zeroth value as a non-negative decimal integer.
// Parsing is lenient: the first non-digit character terminates the scan,
// matching the wire protocol's driver_atoi semantics. A value with no
// leading digits parses as 0.
func (c *Catalog) ValueAsInt(key string) (int, error) {
	v, err := c.Value(key, 0)
	if err != nil {
		return 0, err
	}
	return lenientAtoi(v), nil
}

func lenientAtoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// ValueEquals reports whether key's zeroth value equals v.
func (c *Catalog) ValueEquals(key, v string) (bool, error) {
	cur, err := c.Value(key, 0)
	if err != nil {
		return false, err
	}
	return cur == v, nil
}

// ValueCount returns the length of key's value history.
func (c *Catalog) ValueCount(key string) (int, error) {
	p, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	return len(p.history), nil
}

// Reset marks key so its value history is cleared at the next successful
// commit for that key.
func (c *Catalog) Reset(key string) error {
	p, err := c.Get(key)
	if err != nil {
		return err
	}
	p.reset = true
	return nil
}

// deleteAllValues empties key's value history immediately. Used internally
// by the negotiator when a Reset flag fires on commit.
func (c *Catalog) deleteAllValues(key string) error {
	p, err := c.Get(key)
	if err != nil {
		return err
	}
	p.history = p.history[:0]
	return nil
}

// Dump writes the catalog's zeroth values, one key=value line per entry, in
// catalog order. This is a debugging aid, not part of the wire protocol.
func (c *Catalog) Dump(w io.Writer) error {
	var b strings.Builder
	for _, p := range c.order {
		v := ""
		if len(p.history) > 0 {
			v = p.history[0]
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Package target wires the iSCSI negotiation engine into a runnable login
// session: the built-in parameter catalog, a session identifier, and the
// logging/metrics glue a real target needs around a bare Negotiator. See
// SPEC_FULL.md for the key list this catalog implements.
package target

import "github.com/iscsid/negotiator/internal/iscsi"

// DefaultCatalog registers the standard iSCSI login-phase keys (RFC 3720
// §12) plus the CHAP family, matching the built-in key set a NetBSD-style
// target registers before any login text is parsed.
func DefaultCatalog() (*iscsi.Catalog, error) {
	cat := iscsi.NewCatalog()

	type entry struct {
		typ          iscsi.ParamType
		key, dflt, valid string
	}

	entries := []entry{
		{iscsi.List, "AuthMethod", "None", "CHAP,None"},
		{iscsi.BinaryOr, "HeaderDigest", "No", "Yes,No"},
		{iscsi.BinaryOr, "DataDigest", "No", "Yes,No"},
		{iscsi.Numerical, "MaxConnections", "1", "1"},
		{iscsi.BinaryOr, "InitialR2T", "Yes", "Yes,No"},
		{iscsi.BinaryOr, "ImmediateData", "Yes", "Yes,No"},
		{iscsi.NumericalZ, "MaxBurstLength", "262144", "16777215"},
		{iscsi.NumericalZ, "FirstBurstLength", "65536", "16777215"},
		{iscsi.NumericalZ, "MaxRecvDataSegmentLength", "8192", "16777215"},
		{iscsi.BinaryOr, "DataPDUInOrder", "Yes", "Yes,No"},
		{iscsi.BinaryOr, "DataSequenceInOrder", "Yes", "Yes,No"},
		{iscsi.Numerical, "MaxOutstandingR2T", "1", "1"},
		{iscsi.Numerical, "ErrorRecoveryLevel", "0", "0"},
		{iscsi.Declarative, "SessionType", "Normal", ""},
		{iscsi.Declarative, "TargetName", "", ""},
		{iscsi.Declarative, "TargetAlias", "", ""},
		{iscsi.Declarative, "InitiatorName", "", ""},
		{iscsi.Declarative, "InitiatorAlias", "", ""},
		{iscsi.Declarative, "TargetPortalGroupTag", "1", ""},
		{iscsi.Declarative, "AuthResult", "", ""},

		// CHAP family: owned by the Security sub-negotiator, but each key
		// still needs a catalog slot so its wire value history and Valid
		// field (the offered algorithm set, for CHAP_A) are addressable.
		{iscsi.List, "CHAP_A", "5", "5"},
		{iscsi.Declarative, "CHAP_I", "", ""},
		{iscsi.Declarative, "CHAP_C", "", ""},
		{iscsi.Declarative, "CHAP_N", "", ""},
		{iscsi.Declarative, "CHAP_R", "", ""},
	}

	for _, e := range entries {
		if err := cat.Add(e.typ, e.key, e.dflt, e.valid); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

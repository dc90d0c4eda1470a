package iscsi

// SessionParams is the fixed set of negotiated outcomes the transport layer
// needs once login completes: buffering limits and the four boolean digest
// /sequencing switches. Grounded on the original's set_session_parameters,
// which reads these same seven keys out of the finished catalog (spec §4.5).
type SessionParams struct {
	MaxBurstLength           int
	FirstBurstLength         int
	MaxRecvDataSegmentLength int
	HeaderDigest             bool
	DataDigest               bool
	InitialR2T               bool
	ImmediateData            bool
}

// Snapshot extracts SessionParams from a catalog whose login-phase
// negotiation has finished. It assumes the standard built-in keys are
// present (spec §4.5); use target.DefaultCatalog to guarantee that.
func Snapshot(cat *Catalog) (SessionParams, error) {
	var sp SessionParams
	var err error

	if sp.MaxBurstLength, err = cat.ValueAsInt("MaxBurstLength"); err != nil {
		return sp, err
	}
	if sp.FirstBurstLength, err = cat.ValueAsInt("FirstBurstLength"); err != nil {
		return sp, err
	}
	if sp.MaxRecvDataSegmentLength, err = cat.ValueAsInt("MaxRecvDataSegmentLength"); err != nil {
		return sp, err
	}
	if sp.HeaderDigest, err = cat.ValueEquals("HeaderDigest", "Yes"); err != nil {
		return sp, err
	}
	if sp.DataDigest, err = cat.ValueEquals("DataDigest", "Yes"); err != nil {
		return sp, err
	}
	if sp.InitialR2T, err = cat.ValueEquals("InitialR2T", "Yes"); err != nil {
		return sp, err
	}
	if sp.ImmediateData, err = cat.ValueEquals("ImmediateData", "Yes"); err != nil {
		return sp, err
	}
	return sp, nil
}

package model

// CleanupReport counts what one orphan cleanup pass touched.
type CleanupReport struct {
	// AttestationInstances is how many pending instances were deleted.
	AttestationInstances int64 `json:"attestationInstances"`

	// PhysicalFlows is how many flows were marked removed.
	PhysicalFlows int64 `json:"physicalFlows"`
}

// Total is the number of rows changed across both cleanups.
func (r CleanupReport) Total() int64 {
	return r.AttestationInstances + r.PhysicalFlows
}

package pattern

// Validator re-checks stored patterns against quality thresholds. It
// operates purely on fields the miner maintains, so validation can
// re-run at any time without the member segments.
//
// Every check is a lower bound, so relaxing any threshold never
// invalidates a pattern that was valid before.
type Validator struct {
	// MinFrequency is the minimum number of contributing segments.
	MinFrequency int

	// MinConfidence is the minimum pattern confidence.
	MinConfidence float32

	// MinCohesion is the minimum mean cosine similarity of member
	// segments to the representative embedding.
	MinCohesion float32

	// MinMeaningConsistency is the minimum fraction of meaning
	// associations accounted for by the modal meaning.
	MinMeaningConsistency float64
}

// DefaultValidator returns a validator with the standard thresholds.
func DefaultValidator() *Validator {
	return &Validator{
		MinFrequency:          2,
		MinConfidence:         0.3,
		MinCohesion:           0.6,
		MinMeaningConsistency: 0.5,
	}
}

// IsValid reports whether the pattern clears every threshold.
func (v *Validator) IsValid(p *Pattern) bool {
	if p.Frequency < v.MinFrequency {
		return false
	}
	if p.Confidence < v.MinConfidence {
		return false
	}
	if p.Cohesion < v.MinCohesion {
		return false
	}
	_, consistency := p.ModalMeaning()
	return consistency >= v.MinMeaningConsistency
}

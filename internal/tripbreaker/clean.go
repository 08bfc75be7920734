package tripbreaker

// dropSinglePoints removes candidates holding one point and counts them as
// noise.
func dropSinglePoints(cands []candidate) (kept []candidate, noise int) {
	kept = make([]candidate, 0, len(cands))
	for _, c := range cands {
		if n := c.pointCount(); n < 2 {
			noise += n
			continue
		}
		kept = append(kept, c)
	}
	return kept, noise
}

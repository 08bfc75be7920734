package tripbreaker

// filterAccuracy keeps points whose horizontal accuracy is within cutoff.
func filterAccuracy(points []ProjectedPoint, cutoff float64) (kept []ProjectedPoint, dropped int) {
	kept = make([]ProjectedPoint, 0, len(points))
	for _, p := range points {
		if p.HAccuracy > cutoff {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}

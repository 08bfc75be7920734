package tripbreaker

// assignTrips numbers the planned sequence from 1 and flattens each
// observed candidate into one trip.
func assignTrips(plan []planned) []Trip {
	trips := make([]Trip, len(plan))
	for i, pl := range plan {
		t := Trip{ID: i + 1}
		if pl.inferred != nil {
			t.Code = TripStationInferred
			t.MergeCodes = []MergeCode{MergeInferred}
			link := *pl.inferred
			t.Inferred = &link
			trips[i] = t
			continue
		}

		c := pl.observed
		t.Points = make([]ProjectedPoint, 0, c.pointCount())
		for _, s := range c.segments {
			t.Points = append(t.Points, s.Points...)
		}
		t.MergeCodes = make([]MergeCode, len(c.codes))
		copy(t.MergeCodes, c.codes)
		t.Code = TripDirect
		if len(c.segments) > 1 {
			t.Code = TripVelocityMerged
		}
		trips[i] = t
	}
	return trips
}

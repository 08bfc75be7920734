package tripbreaker

import "time"

// breakByTimeGap starts a new segment whenever the time since the previous
// point exceeds gap.
func breakByTimeGap(points []ProjectedPoint, gap time.Duration) []Segment {
	if len(points) == 0 {
		return nil
	}
	var segments []Segment
	start := 0
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Sub(points[i-1].Timestamp) > gap {
			segments = append(segments, Segment{Points: points[start:i:i]})
			start = i
		}
	}
	return append(segments, Segment{Points: points[start:len(points):len(points)]})
}

package client

// DeriveTimestamps turns a track's start time, length and the position sampled
// at that start time into absolute bounds, so the peer can render progress
// without further updates. All values are seconds. Without both start and
// duration there is nothing to show and nil is returned.
func DeriveTimestamps(start, duration, elapsed *int64) *Timestamps {
	if start == nil || duration == nil {
		return nil
	}
	s := *start
	if elapsed != nil {
		s -= *elapsed
	}
	return &Timestamps{
		Start: Int64(s),
		End:   Int64(s + *duration),
	}
}

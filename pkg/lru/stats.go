package lru

// Stats counts cache operations since construction.
type Stats struct {
	Hits      uint64 // Get calls that found their key
	Misses    uint64 // Get calls that did not
	Inserts   uint64 // Put calls that created an entry
	Updates   uint64 // Put calls that replaced a value
	Evictions uint64
}

// HitRatio returns Hits / (Hits + Misses), or 0 before the first Get.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

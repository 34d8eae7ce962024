package cache

type HealthStatus string

const (
	HealthGreen  HealthStatus = "green"
	HealthYellow HealthStatus = "yellow"
	HealthRed    HealthStatus = "red"
)

const (
	minLookupsForHealth = 20
	redErrorRate        = 0.25
	redMissRate         = 0.80
	yellowErrorRate     = 0.10
	yellowMissRate      = 0.50
)

type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Errors    uint64  `json:"errors"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hit_rate"`
	MissRate  float64 `json:"miss_rate"`
	ErrorRate float64 `json:"error_rate"`
}

type Health struct {
	Status HealthStatus `json:"status"`
	Reason string       `json:"reason"`
	Stats  Stats        `json:"stats"`
}

func (s *Store) Stats() Stats {
	st := Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Errors:    s.errors.Load(),
		Evictions: s.evictions.Load(),
		Entries:   s.Len(),
	}
	lookups := st.Hits + st.Misses
	if lookups > 0 {
		st.HitRate = float64(st.Hits) / float64(lookups)
		st.MissRate = float64(st.Misses) / float64(lookups)
		st.ErrorRate = float64(st.Errors) / float64(lookups)
	}
	return st
}

// Health classifies the counters into a traffic light. It is informational
// only and never feeds back into the engine.
func (s *Store) Health() Health {
	st := s.Stats()
	return Health{Status: classify(st), Reason: reason(st), Stats: st}
}

func classify(st Stats) HealthStatus {
	if st.Hits+st.Misses < minLookupsForHealth {
		return HealthGreen
	}
	switch {
	case st.ErrorRate >= redErrorRate || st.MissRate >= redMissRate:
		return HealthRed
	case st.ErrorRate >= yellowErrorRate || st.MissRate >= yellowMissRate:
		return HealthYellow
	}
	return HealthGreen
}

func reason(st Stats) string {
	switch classify(st) {
	case HealthRed:
		if st.ErrorRate >= redErrorRate {
			return "upstream error rate critical"
		}
		return "miss rate critical"
	case HealthYellow:
		if st.ErrorRate >= yellowErrorRate {
			return "upstream error rate elevated"
		}
		return "miss rate elevated"
	}
	if st.Hits+st.Misses < minLookupsForHealth {
		return "warming up"
	}
	return "ok"
}

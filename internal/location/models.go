package location

import "time"

// PositionSample is one location ping from a member. It is never
// persisted on its own; the store keeps it as a member's current sample
// plus a bounded history.
type PositionSample struct {
	UserID    string    `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Floor     int       `json:"floor,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Online    bool      `json:"online"`
}

type MemberStats struct {
	TotalSamples   int64     `json:"total_samples"`
	LastActive     time.Time `json:"last_active"`
	AvgSpeedMps    float64   `json:"avg_speed_mps"`
	TotalDistanceM float64   `json:"total_distance_m"`
}

// MemberState is one member's slice of the connection aggregate.
type MemberState struct {
	UserID  string           `json:"user_id"`
	Current PositionSample   `json:"current"`
	Stats   MemberStats      `json:"stats"`
	History []PositionSample `json:"history,omitempty"`
}

type ConnectionStats struct {
	ActiveUsers  int       `json:"active_users"`
	TotalSamples int64     `json:"total_samples"`
	LastActivity time.Time `json:"last_activity"`
}

// Source values for a resolved location read.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// Resolved is a location read tagged with where it came from and
// whether it has outlived the cache TTL.
type Resolved struct {
	Sample  PositionSample `json:"sample"`
	Source  string         `json:"source"`
	IsStale bool           `json:"is_stale"`
}

// UpdateResult reports a processed ping. Persisted is false when the
// durable write failed and only the cache holds the sample.
type UpdateResult struct {
	Sample    PositionSample `json:"sample"`
	Persisted bool           `json:"persisted"`
}

// MemoryStatus is a diagnostic snapshot of the cache.
type MemoryStatus struct {
	TotalCached int               `json:"total_cached"`
	Active      int               `json:"active"`
	Stale       int               `json:"stale"`
	Users       []UserCacheStatus `json:"users"`
}

type UserCacheStatus struct {
	UserID     string    `json:"user_id"`
	InsertedAt time.Time `json:"inserted_at"`
	AgeSeconds int64     `json:"age_seconds"`
	Fresh      bool      `json:"fresh"`
	Online     bool      `json:"online"`
}

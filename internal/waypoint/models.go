package waypoint

import "time"

// Waypoint types. Each connection tracks at most one group mark and one
// personal mark per member for each type.
const (
	TypeBusStation = "bus_station"
	TypeHotel      = "hotel"
)

const (
	ScopePersonal = "personal"
	ScopeGroup    = "group"
)

// Resolution sources, in member priority order.
const (
	SourcePersonal = "personal"
	SourceGroup    = "group"
	SourceUnmarked = "unmarked"
)

// UnmarkedName is the sentinel name for an unresolved waypoint slot.
const UnmarkedName = "Unmarked"

var Types = []string{TypeBusStation, TypeHotel}

// Mark is a named waypoint pinned on a connection, scoped either to one
// member (personal) or the whole group.
type Mark struct {
	ID            string    `json:"id"`
	ConnectionID  string    `json:"connection_id"`
	Type          string    `json:"type"`
	Scope         string    `json:"scope"`
	UserID        string    `json:"user_id,omitempty"` // personal scope only
	Name          string    `json:"name"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Comment       string    `json:"comment"`
	Images        []string  `json:"images"`
	MarkedBy      string    `json:"marked_by"`
	IsOwnerMarked bool      `json:"is_owner_marked"`
	MarkedAt      time.Time `json:"marked_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Resolution is the active waypoint of one type for one viewer. When no
// mark wins, Source is "unmarked" and Mark is nil.
type Resolution struct {
	Type     string `json:"type"`
	Source   string `json:"source"`
	IsMarked bool   `json:"is_marked"`
	Name     string `json:"name"`
	Mark     *Mark  `json:"mark,omitempty"`
}

func ValidType(t string) bool {
	return t == TypeBusStation || t == TypeHotel
}

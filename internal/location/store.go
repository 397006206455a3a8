package location

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/db"
	"github.com/FaRaZ-32729/mushabaBackend/internal/shared/geo"
)

// Store is the durable per-connection location aggregate: every member's
// current sample, a bounded history and rolling stats. Each member is a
// single row, so concurrent pings from different members never clobber
// each other.
type Store struct {
	db         db.Querier
	historyLen int
}

func NewStore(q db.Querier, historyLen int) *Store {
	if historyLen <= 0 {
		historyLen = 5
	}
	return &Store{db: q, historyLen: historyLen}
}

// EnsureExists lazily creates the connection aggregate. Idempotent.
func (s *Store) EnsureExists(ctx context.Context, connectionID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO connection_locations (connection_id, active_users, total_samples, last_activity)
		VALUES ($1, 0, 0, now())
		ON CONFLICT (connection_id) DO NOTHING
	`, connectionID)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "ensure connection aggregate", err)
	}
	return nil
}

// UpsertMemberSample makes sample the member's current position, appends
// it to the bounded history and refreshes member and connection stats.
// Re-applying a sample with the same timestamp as the stored current one
// is a no-op, so retried writes do not double-count.
func (s *Store) UpsertMemberSample(ctx context.Context, connectionID string, sample PositionSample) error {
	var (
		prevLat, prevLng, avgSpeed, totalDistance float64
		prevRecordedAt                            time.Time
		totalSamples                              int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT latitude, longitude, recorded_at, total_samples, avg_speed_mps, total_distance_m
		FROM member_locations
		WHERE connection_id=$1 AND user_id=$2
	`, connectionID, sample.UserID).Scan(&prevLat, &prevLng, &prevRecordedAt, &totalSamples, &avgSpeed, &totalDistance)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := s.insertMember(ctx, connectionID, sample); err != nil {
			return err
		}
	case err != nil:
		return apperr.Wrap(apperr.Storage, "read member state", err)
	case prevRecordedAt.Equal(sample.Timestamp):
		// retried write of the sample already applied
		return nil
	default:
		totalSamples++
		totalDistance += geo.HaversineKm(prevLat, prevLng, sample.Latitude, sample.Longitude) * 1000
		avgSpeed += (sample.Speed - avgSpeed) / float64(totalSamples)

		_, err = s.db.Exec(ctx, `
			UPDATE member_locations
			SET latitude=$3, longitude=$4, floor=$5, accuracy=$6, speed=$7, heading=$8,
			    online=true, recorded_at=$9,
			    total_samples=$10, last_active=$9, avg_speed_mps=$11, total_distance_m=$12
			WHERE connection_id=$1 AND user_id=$2
		`, connectionID, sample.UserID, sample.Latitude, sample.Longitude, sample.Floor,
			sample.Accuracy, sample.Speed, sample.Heading, sample.Timestamp,
			totalSamples, avgSpeed, totalDistance)
		if err != nil {
			return apperr.Wrap(apperr.Storage, "update member sample", err)
		}
		if err := s.appendHistory(ctx, connectionID, sample); err != nil {
			return err
		}
	}

	return s.refreshStats(ctx, connectionID)
}

func (s *Store) insertMember(ctx context.Context, connectionID string, sample PositionSample) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO member_locations
			(connection_id, user_id, latitude, longitude, floor, accuracy, speed, heading,
			 online, recorded_at, total_samples, last_active, avg_speed_mps, total_distance_m)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true,$9,1,$9,$10,0)
	`, connectionID, sample.UserID, sample.Latitude, sample.Longitude, sample.Floor,
		sample.Accuracy, sample.Speed, sample.Heading, sample.Timestamp, sample.Speed)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "insert member", err)
	}
	return s.appendHistory(ctx, connectionID, sample)
}

func (s *Store) appendHistory(ctx context.Context, connectionID string, sample PositionSample) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO member_location_history
			(connection_id, user_id, latitude, longitude, floor, accuracy, speed, heading, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, connectionID, sample.UserID, sample.Latitude, sample.Longitude, sample.Floor,
		sample.Accuracy, sample.Speed, sample.Heading, sample.Timestamp)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "append history", err)
	}

	// drop everything beyond the newest historyLen entries
	_, err = s.db.Exec(ctx, `
		DELETE FROM member_location_history
		WHERE connection_id=$1 AND user_id=$2 AND id NOT IN (
			SELECT id FROM member_location_history
			WHERE connection_id=$1 AND user_id=$2
			ORDER BY recorded_at DESC, id DESC
			LIMIT $3
		)
	`, connectionID, sample.UserID, s.historyLen)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "trim history", err)
	}
	return nil
}

func (s *Store) refreshStats(ctx context.Context, connectionID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE connection_locations SET
			active_users=(SELECT COUNT(*) FROM member_locations WHERE connection_id=$1 AND online),
			total_samples=COALESCE((SELECT SUM(total_samples) FROM member_locations WHERE connection_id=$1),0),
			last_activity=now()
		WHERE connection_id=$1
	`, connectionID)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "refresh connection stats", err)
	}
	return nil
}

// CurrentSample returns the user's most recent durable sample across
// their connections.
func (s *Store) CurrentSample(ctx context.Context, userID string) (PositionSample, error) {
	var sample PositionSample
	err := s.db.QueryRow(ctx, `
		SELECT user_id, latitude, longitude, floor, accuracy, speed, heading, online, recorded_at
		FROM member_locations
		WHERE user_id=$1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, userID).Scan(&sample.UserID, &sample.Latitude, &sample.Longitude, &sample.Floor,
		&sample.Accuracy, &sample.Speed, &sample.Heading, &sample.Online, &sample.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return PositionSample{}, apperr.New(apperr.NotFound, "no location data")
	}
	if err != nil {
		return PositionSample{}, apperr.Wrap(apperr.Storage, "read current sample", err)
	}
	return sample, nil
}

// MemberStates returns every member's current sample and stats for a
// connection.
func (s *Store) MemberStates(ctx context.Context, connectionID string) ([]MemberState, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, latitude, longitude, floor, accuracy, speed, heading, online, recorded_at,
		       total_samples, last_active, avg_speed_mps, total_distance_m
		FROM member_locations
		WHERE connection_id=$1
		ORDER BY user_id
	`, connectionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list member states", err)
	}
	defer rows.Close()

	var states []MemberState
	for rows.Next() {
		var st MemberState
		if err := rows.Scan(&st.UserID, &st.Current.Latitude, &st.Current.Longitude, &st.Current.Floor,
			&st.Current.Accuracy, &st.Current.Speed, &st.Current.Heading, &st.Current.Online,
			&st.Current.Timestamp, &st.Stats.TotalSamples, &st.Stats.LastActive,
			&st.Stats.AvgSpeedMps, &st.Stats.TotalDistanceM); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan member state", err)
		}
		st.Current.UserID = st.UserID
		states = append(states, st)
	}
	return states, nil
}

// MemberHistories returns member states with their history windows since
// the given time attached, newest first.
func (s *Store) MemberHistories(ctx context.Context, connectionID string, since time.Time) ([]MemberState, error) {
	states, err := s.MemberStates(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return states, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT user_id, latitude, longitude, floor, accuracy, speed, heading, recorded_at
		FROM member_location_history
		WHERE connection_id=$1 AND recorded_at >= $2
		ORDER BY recorded_at DESC
	`, connectionID, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list history", err)
	}
	defer rows.Close()

	byUser := map[string][]PositionSample{}
	for rows.Next() {
		var p PositionSample
		if err := rows.Scan(&p.UserID, &p.Latitude, &p.Longitude, &p.Floor,
			&p.Accuracy, &p.Speed, &p.Heading, &p.Timestamp); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan history", err)
		}
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}
	for i := range states {
		states[i].History = byUser[states[i].UserID]
	}
	return states, nil
}

// MarkOffline flips the user's durable samples offline in every
// connection they belong to and refreshes those connections' stats.
func (s *Store) MarkOffline(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE member_locations
		SET online=false, last_active=now()
		WHERE user_id=$1
		RETURNING connection_id
	`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "mark offline", err)
	}

	var connectionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperr.Wrap(apperr.Storage, "scan connection id", err)
		}
		connectionIDs = append(connectionIDs, id)
	}
	rows.Close()

	for _, id := range connectionIDs {
		if err := s.refreshStats(ctx, id); err != nil {
			return connectionIDs, err
		}
	}
	return connectionIDs, nil
}

// Stats reads the connection-level aggregate counters.
func (s *Store) Stats(ctx context.Context, connectionID string) (ConnectionStats, error) {
	var stats ConnectionStats
	err := s.db.QueryRow(ctx, `
		SELECT active_users, total_samples, last_activity
		FROM connection_locations
		WHERE connection_id=$1
	`, connectionID).Scan(&stats.ActiveUsers, &stats.TotalSamples, &stats.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConnectionStats{}, apperr.New(apperr.NotFound, "connection aggregate not found")
	}
	if err != nil {
		return ConnectionStats{}, apperr.Wrap(apperr.Storage, "read connection stats", err)
	}
	return stats, nil
}

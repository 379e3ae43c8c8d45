package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hotspot.report/internal/config"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// Snapshot is one stored engine run.
type Snapshot struct {
	ID          string            `json:"snapshot_id"`
	CreatedAt   time.Time         `json:"created_at"`
	ReportCount int               `json:"report_count"`
	Params      hotspot.Config    `json:"-"`
	Clusters    []hotspot.Cluster `json:"clusters"`
	Stats       hotspot.RunStats  `json:"stats"`
}

// SnapshotSummary is the listing form of a snapshot.
type SnapshotSummary struct {
	ID           string               `json:"snapshot_id"`
	CreatedAt    time.Time            `json:"created_at"`
	ReportCount  int                  `json:"report_count"`
	ClusterCount int                  `json:"cluster_count"`
	Params       *config.EngineParams `json:"params"`
}

// SaveSnapshot stores s, assigning an ID when s.ID is empty.
func (db *DB) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	params, err := config.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	clusters := s.Clusters
	if clusters == nil {
		clusters = []hotspot.Cluster{}
	}
	clustersJSON, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("failed to encode clusters: %w", err)
	}
	statsJSON, err := json.Marshal(s.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO hotspot_snapshots (
			snapshot_id, created_unix_nanos, report_count, params_json, clusters_json, stats_json
		) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.CreatedAt.UnixNano(), s.ReportCount, string(params), string(clustersJSON), string(statsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", s.ID, err)
	}
	diagf("saved snapshot %s: %d reports, %d clusters", s.ID, s.ReportCount, len(clusters))
	return nil
}

// LatestSnapshot returns the most recent snapshot, or nil when none exist.
func (db *DB) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT snapshot_id, created_unix_nanos, report_count, params_json, clusters_json, stats_json
		FROM hotspot_snapshots
		ORDER BY created_unix_nanos DESC, rowid DESC
		LIMIT 1`)

	var (
		s                                   Snapshot
		created                             int64
		paramsJSON, clustersJSON, statsJSON string
	)
	err := row.Scan(&s.ID, &created, &s.ReportCount, &paramsJSON, &clustersJSON, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}

	s.CreatedAt = time.Unix(0, created).UTC()
	params, err := config.Unmarshal([]byte(paramsJSON))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	s.Params = params.EngineConfig()
	if err := json.Unmarshal([]byte(clustersJSON), &s.Clusters); err != nil {
		return nil, fmt.Errorf("snapshot %s: failed to decode clusters: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &s.Stats); err != nil {
		return nil, fmt.Errorf("snapshot %s: failed to decode stats: %w", s.ID, err)
	}
	return &s, nil
}

// ListSnapshots returns up to limit snapshot summaries, newest first.
func (db *DB) ListSnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx, `
		SELECT snapshot_id, created_unix_nanos, report_count, params_json, json_array_length(clusters_json)
		FROM hotspot_snapshots
		ORDER BY created_unix_nanos DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	summaries := []SnapshotSummary{}
	for rows.Next() {
		var (
			s          SnapshotSummary
			created    int64
			paramsJSON string
		)
		if err := rows.Scan(&s.ID, &created, &s.ReportCount, &paramsJSON, &s.ClusterCount); err != nil {
			return nil, err
		}
		s.CreatedAt = time.Unix(0, created).UTC()
		if s.Params, err = config.Unmarshal([]byte(paramsJSON)); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// PruneSnapshots deletes all but the newest keep snapshots and returns the
// number removed.
func (db *DB) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := db.ExecContext(ctx, `
		DELETE FROM hotspot_snapshots
		WHERE snapshot_id NOT IN (
			SELECT snapshot_id FROM hotspot_snapshots
			ORDER BY created_unix_nanos DESC, rowid DESC
			LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		diagf("pruned %d snapshots, kept %d", n, keep)
	}
	return n, nil
}

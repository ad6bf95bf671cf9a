// Package store records projects, bid snapshots and the event log in SQLite so
// an engine can be rebuilt after a restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/minexpert/bidwar/bidapi"
	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/logger"
)

// ErrProjectNotFound is returned by LoadProject for unknown IDs.
var ErrProjectNotFound = errors.New("project not found")

// Store wraps the SQLite database.
type Store struct {
	db *gorm.DB
}

// NewStore opens (creating if needed) the database at dbPath and migrates the schema.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer; serialize instead of surfacing "database is locked".
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&ProjectRecord{}, &BidRecord{}, &EventRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// SaveProject inserts or replaces a project definition.
func (s *Store) SaveProject(ctx context.Context, p core.Project) error {
	return saveProject(s.db.WithContext(ctx), p)
}

// SaveBid inserts or replaces a bid snapshot.
func (s *Store) SaveBid(ctx context.Context, b core.Bid) error {
	return saveBid(s.db.WithContext(ctx), b)
}

func saveProject(tx *gorm.DB, p core.Project) error {
	rec := projectRecord(p)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "budget_min", "budget_max", "currency", "timeline", "deadline", "max_bids", "status", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", p.ID, err)
	}
	return nil
}

func saveBid(tx *gorm.DB, b core.Bid) error {
	rec := bidRecord(b)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert bid %s: %w", b.ID, err)
	}
	return nil
}

// RecordEvent appends ev to the event log and refreshes the project and bid
// snapshots it carries, in one transaction.
func (s *Store) RecordEvent(ctx context.Context, ev core.Event) error {
	payload, err := json.Marshal(bidapi.NewEventView(ev))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveProject(tx, ev.Project); err != nil {
			return err
		}
		if ev.Bid.ID != "" {
			if err := saveBid(tx, ev.Bid); err != nil {
				return err
			}
		}
		rec := EventRecord{
			ProjectID:  ev.Project.ID,
			Type:       string(ev.Type),
			BidID:      ev.Bid.ID,
			Payload:    datatypes.JSON(payload),
			OccurredAt: ev.Timestamp,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
}

// Recorder returns a subscriber callback that records every event it receives.
// Write failures are logged; the engine has already committed the change.
func (s *Store) Recorder(ctx context.Context, log logger.Logger) func(core.Event) {
	return func(ev core.Event) {
		if err := s.RecordEvent(ctx, ev); err != nil {
			log.Error("failed to record event", logger.Fields{
				"project_id": ev.Project.ID,
				"event_type": string(ev.Type),
				"bid_id":     ev.Bid.ID,
				"error":      err.Error(),
			})
		}
	}
}

// LoadProject returns a project and its bid snapshots in submission order, ready
// for Engine.RegisterProject.
func (s *Store) LoadProject(ctx context.Context, projectID string) (core.Project, []core.Bid, error) {
	var rec ProjectRecord
	err := s.db.WithContext(ctx).Where("id = ?", projectID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Project{}, nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if err != nil {
		return core.Project{}, nil, fmt.Errorf("query project: %w", err)
	}

	bids, err := s.ListBids(ctx, projectID)
	if err != nil {
		return core.Project{}, nil, err
	}
	return rec.project(), bids, nil
}

// ListProjects returns every stored project ordered by ID.
func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	var recs []ProjectRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]core.Project, len(recs))
	for i, rec := range recs {
		out[i] = rec.project()
	}
	return out, nil
}

// ListBids returns a project's bid snapshots in submission order.
func (s *Store) ListBids(ctx context.Context, projectID string) ([]core.Bid, error) {
	var recs []BidRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("sequence").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	out := make([]core.Bid, len(recs))
	for i, rec := range recs {
		out[i] = rec.bid()
	}
	return out, nil
}

// ListEvents returns a project's event log oldest first.
func (s *Store) ListEvents(ctx context.Context, projectID string) ([]bidapi.EventView, error) {
	var recs []EventRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]bidapi.EventView, len(recs))
	for i, rec := range recs {
		if err := json.Unmarshal(rec.Payload, &out[i]); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", rec.ID, err)
		}
	}
	return out, nil
}

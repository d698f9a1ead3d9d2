// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package history persists compression runs to a local SQLite file so
// the CLI can show what was squeezed and how much was saved.
package history

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Record is one completed compression run.
type Record struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	InputName          string    `json:"input_name"`
	OriginalSize       int       `json:"original_size"`
	CompressedSize     int       `json:"compressed_size"`
	ReductionPct       float64   `json:"reduction_pct"`
	Quality            int       `json:"quality"`
	ImagesRecompressed int       `json:"images_recompressed"`
}

// Totals aggregates all recorded runs.
type Totals struct {
	Runs       int64 `json:"runs"`
	BytesIn    int64 `json:"bytes_in"`
	BytesOut   int64 `json:"bytes_out"`
	BytesSaved int64 `json:"bytes_saved"`
}

// Store wraps the history database.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the history database at path and migrates
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Add appends a completed run.
func (s *Store) Add(rec *Record) error {
	return s.db.Create(rec).Error
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	var recs []Record
	err := s.db.Order("created_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// TotalSavings sums all recorded runs.
func (s *Store) TotalSavings() (Totals, error) {
	var t Totals
	err := s.db.Model(&Record{}).
		Select("count(*) as runs, coalesce(sum(original_size),0) as bytes_in, coalesce(sum(compressed_size),0) as bytes_out").
		Scan(&t).Error
	if err != nil {
		return Totals{}, err
	}
	t.BytesSaved = t.BytesIn - t.BytesOut
	return t, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

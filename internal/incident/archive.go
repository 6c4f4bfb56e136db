// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package incident

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/models"
)

// Key prefixes for BadgerDB storage. Closed incidents are keyed by close
// time so a reverse prefix scan yields the most recent first.
const (
	closedKeyPrefix = "incident_closed:"
	idKeyPrefix     = "incident_id:"
)

// Archive persists closed incidents beyond the in-memory history.
type Archive interface {
	Save(inc *models.Incident) error
	Get(id string) (*models.Incident, error)
	Recent(limit int) ([]*models.Incident, error)
	Close() error
}

// BadgerArchive implements Archive on BadgerDB.
type BadgerArchive struct {
	db *badger.DB
}

// OpenBadgerArchive opens (or creates) an archive at path. An empty path
// opens an in-memory database.
func OpenBadgerArchive(path string) (*BadgerArchive, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open incident archive: %w", err)
	}
	return &BadgerArchive{db: db}, nil
}

// NewBadgerArchive wraps an already open database.
func NewBadgerArchive(db *badger.DB) *BadgerArchive {
	return &BadgerArchive{db: db}
}

func closedKey(inc *models.Incident) []byte {
	closed := inc.UpdatedAt
	if inc.ClosedAt != nil {
		closed = *inc.ClosedAt
	}
	return []byte(fmt.Sprintf("%s%020d:%s", closedKeyPrefix, closed.UnixNano(), inc.ID))
}

// Save stores a closed incident with its evidence.
func (a *BadgerArchive) Save(inc *models.Incident) error {
	data, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}
	key := closedKey(inc)

	return a.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set incident: %w", err)
		}
		if err := txn.Set([]byte(idKeyPrefix+inc.ID), key); err != nil {
			return fmt.Errorf("set incident index: %w", err)
		}
		return nil
	})
}

// Get returns an archived incident by ID.
func (a *BadgerArchive) Get(id string) (*models.Incident, error) {
	var inc models.Incident
	err := a.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get([]byte(idKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return models.ErrIncidentNotFound
		}
		if err != nil {
			return fmt.Errorf("get incident index: %w", err)
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return models.ErrIncidentNotFound
		}
		if err != nil {
			return fmt.Errorf("get incident: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &inc)
		})
	})
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

// Recent returns up to limit archived incidents, most recently closed first.
func (a *BadgerArchive) Recent(limit int) ([]*models.Incident, error) {
	var out []*models.Incident
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(closedKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key with the prefix.
		seek := append([]byte(closedKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(out) < limit; it.Next() {
			var inc models.Incident
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &inc)
			}); err != nil {
				return err
			}
			out = append(out, &inc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list archived incidents: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (a *BadgerArchive) Close() error {
	return a.db.Close()
}

// archiveTime is the timestamp used to order an incident in history.
func archiveTime(inc *models.Incident) time.Time {
	if inc.ClosedAt != nil {
		return *inc.ClosedAt
	}
	return inc.UpdatedAt
}

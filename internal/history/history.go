// Package history is a persistent log of acquisition attempts.
package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/acquire"
)

var Buckets = struct {
	Metadata     []byte
	Acquisitions []byte
}{
	Metadata:     []byte("__metadata__"),
	Acquisitions: []byte("acquisitions"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

var ErrNewerVersion = errors.New("history database is from a newer version")

type Status string

const (
	StatusAcquired Status = "acquired"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Record is one finished acquisition.
type Record struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Platform string    `json:"platform"`
	Shape    string    `json:"shape"`
	Status   Status    `json:"status"`
	Path     string    `json:"path,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// NewRecord describes the outcome of a request.
func NewRecord(req acquire.Request, outcome acquire.Outcome, at time.Time) Record {
	record := Record{
		ID:       req.ID,
		URL:      req.URL,
		Platform: req.Platform.String(),
		Shape:    req.Shape.String(),
		At:       at.UTC(),
	}
	switch o := outcome.(type) {
	case acquire.Acquired:
		record.Status = StatusAcquired
		record.Path = o.File.Path
		record.Kind = o.File.Kind.String()
	case acquire.NotFound:
		record.Status = StatusNotFound
		record.Reason = o.Reason
	case acquire.Failed:
		record.Status = StatusFailed
		record.Reason = o.String()
	}
	return record
}

type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Acquisitions); err != nil {
			return err
		}

		// Get the current version of the database
		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("%w: %d", ErrNewerVersion, version)
		}

		// Set the current version of the database
		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put appends a record; records are kept in the order they were added.
func (s *Store) Put(record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Acquisitions)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

// List returns the records, oldest first.
func (s *Store) List() (records []Record, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Acquisitions)
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			} else {
				records = append(records, record)
				return nil
			}
		})
	})
	if err != nil {
		return nil, err
	} else {
		return records, nil
	}
}

// Observer records every finished acquisition. Write failures are logged, not returned, since the acquisition
// itself already happened.
func (s *Store) Observer() acquire.Observer {
	return func(ctx context.Context, req acquire.Request, outcome acquire.Outcome) {
		if err := s.Put(NewRecord(req, outcome, time.Now())); err != nil {
			media_archiver.Logger(ctx).Sugar().Warnf("failed to record %s: %v", req.URL, err)
		}
	}
}

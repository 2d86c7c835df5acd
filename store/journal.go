package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotblauer/ftmsd/params"
	"go.etcd.io/bbolt"
)

// JournalEntry records one successfully uploaded workout.
type JournalEntry struct {
	Filename    string    `json:"filename"`
	Start       time.Time `json:"start"`
	ActivityURL string    `json:"activity_url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Journal is a bbolt-backed record of completed uploads, keyed by
// workout filename. Opening a writable journal takes a file lock;
// there must be exactly one live daemon per datadir.
type Journal struct {
	DB *bbolt.DB
}

func OpenJournal(root string) (*Journal, error) {
	db, err := bbolt.Open(filepath.Join(root, params.JournalDBName), 0600, nil)
	if err != nil {
		return nil, err
	}
	return &Journal{DB: db}, nil
}

func (j *Journal) Close() error {
	return j.DB.Close()
}

func (j *Journal) Record(entry JournalEntry) error {
	if entry.Filename == "" {
		return fmt.Errorf("journal: empty filename")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(params.JournalBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(entry.Filename), data)
	})
}

// Entries returns all journaled uploads in key (chronological) order.
func (j *Journal) Entries() ([]JournalEntry, error) {
	out := []JournalEntry{}
	err := j.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.JournalBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var entry JournalEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, entry)
			return nil
		})
	})
	return out, err
}

// Last returns the most recent journal entry, or nil if none.
func (j *Journal) Last() (*JournalEntry, error) {
	var out *JournalEntry
	err := j.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.JournalBucket)
		if bucket == nil {
			return nil
		}
		k, v := bucket.Cursor().Last()
		if k == nil {
			return nil
		}
		out = &JournalEntry{}
		return json.Unmarshal(v, out)
	})
	return out, err
}

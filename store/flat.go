// Package store is the durable side of session recovery: a flat
// directory of timestamp-named TCX files awaiting upload, a bbolt
// journal of completed uploads, and an optional S3 archive.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotblauer/ftmsd/params"
)

// Flat is a flat-file workout store rooted at one directory.
// Files are named <start:YYYYMMDD_HHMMSS>.tcx so that a lexical
// listing is a chronological listing.
type Flat struct {
	path string
}

func NewFlatWithRoot(root string) *Flat {
	root = filepath.Clean(root)
	if !filepath.IsAbs(root) {
		root, _ = filepath.Abs(root)
	}
	return &Flat{path: filepath.Join(root, params.WorkoutsDir)}
}

func (f *Flat) Path() string { return f.path }

func (f *Flat) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *Flat) MkdirAll() error {
	return os.MkdirAll(f.path, 0770)
}

// WorkoutFilename derives the deterministic filename for a session
// start time.
func WorkoutFilename(start time.Time) string {
	return fmt.Sprintf("%s.%s", start.UTC().Format(params.WorkoutFileTimeLayout), params.WorkoutFileExt)
}

// WriteWorkout durably writes encoded content for the session starting
// at start, returning the file path. This write is the recovery point;
// callers must treat its failure as session loss.
func (f *Flat) WriteWorkout(start time.Time, content string) (string, error) {
	if err := f.MkdirAll(); err != nil {
		return "", err
	}
	target := filepath.Join(f.path, WorkoutFilename(start))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0660); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", err
	}
	return target, nil
}

// ListPending returns full paths of stored workout files in
// chronological (filename) order.
func (f *Flat) ListPending() ([]string, error) {
	pattern := filepath.Join(f.path, "*."+params.WorkoutFileExt)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (f *Flat) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Remove deletes one stored workout. Missing files are not an error;
// a concurrent cleanup already did the job.
func (f *Flat) Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

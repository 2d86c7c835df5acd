package params

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/mitchellh/go-homedir"
)

func init() {
	metrics.Enabled = true
}

const (
	// WorkoutsDir holds durably-written TCX files awaiting upload.
	// A file here with no journal entry is the ground truth of "needs upload".
	WorkoutsDir = "workouts"

	WorkoutFileExt = "tcx"

	// WorkoutFileTimeLayout names workout files by session start time,
	// so a lexical sort of the dir is a chronological sort.
	WorkoutFileTimeLayout = "20060102_150405"
)

var DefaultDatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".ftmsd")
}()

var JournalDBName = "journal.db"
var JournalBucket = []byte("uploads")

var (
	INFLUXDB_URL    = os.Getenv("INFLUXDB_URL")
	INFLUXDB_TOKEN  = os.Getenv("INFLUXDB_TOKEN")
	INFLUXDB_ORG    = os.Getenv("INFLUXDB_ORG")
	INFLUXDB_BUCKET = os.Getenv("INFLUXDB_BUCKET")
)

// AWS_BUCKETNAME, when set, enables archiving encoded workout files to S3
// after the durable local write. Archival is best-effort.
var AWS_BUCKETNAME = os.Getenv("AWS_BUCKETNAME")

var DefaultDedupeCacheSize = 10_000

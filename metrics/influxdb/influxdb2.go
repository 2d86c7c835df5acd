package influxdb

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rotblauer/ftmsd/events"
	"github.com/rotblauer/ftmsd/params"
)

// ExportWorkout posts one finished workout summary to an InfluxDB
// Write API. The last error encountered is returned.
func ExportWorkout(w *events.Workout) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(params.INFLUXDB_URL, params.INFLUXDB_TOKEN, opts)
	writeAPI := client.WriteAPI(params.INFLUXDB_ORG, params.INFLUXDB_BUCKET)

	// Errors returns a channel for reading errors which occur during
	// async writes. Must be called before any writes, and drained, or
	// the writer will block.
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	p := influxdb2.NewPointWithMeasurement("workout").
		SetTime(w.Start).
		AddTag("activity", w.Activity).
		AddField("distance_m", w.DistanceM).
		AddField("duration_sec", w.DurationSec).
		AddField("calories", w.Calories).
		AddField("avg_speed_kmh", w.AvgSpeedKmh)
	if w.ActivityURL != "" {
		p.AddField("activity_url", w.ActivityURL)
	}
	writeAPI.WritePoint(p)

	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}

// Package tcx encodes a smoothed session into Garmin Training Center
// XML, with the ActivityExtension namespace carrying per-point speed.
// Element order and namespaces are fixed by downstream consumers
// (Strava, Garmin tooling) and must not change.
package tcx

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/rotblauer/ftmsd/common"
	"github.com/rotblauer/ftmsd/types/activity"
	"github.com/rotblauer/ftmsd/types/telemetry"
)

const (
	NSTrainingCenterDatabase = "http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2"
	NSXMLSchemaInstance      = "http://www.w3.org/2001/XMLSchema-instance"
	NSActivityExtension      = "http://www.garmin.com/xmlschemas/ActivityExtension/v2"

	timeLayout = "2006-01-02T15:04:05.000Z"
)

type Document struct {
	XMLName    xml.Name   `xml:"TrainingCenterDatabase"`
	Xmlns      string     `xml:"xmlns,attr"`
	XmlnsXSI   string     `xml:"xmlns:xsi,attr"`
	XmlnsTPX   string     `xml:"xmlns:tpx,attr"`
	Activities Activities `xml:"Activities"`
}

type Activities struct {
	Activity Activity `xml:"Activity"`
}

type Activity struct {
	Sport string `xml:"Sport,attr"`
	ID    string `xml:"Id"`
	Lap   Lap    `xml:"Lap"`
}

type Lap struct {
	StartTime        string `xml:"StartTime,attr"`
	TotalTimeSeconds string `xml:"TotalTimeSeconds"`
	DistanceMeters   string `xml:"DistanceMeters"`
	Calories         int    `xml:"Calories"`
	Intensity        string `xml:"Intensity"`
	TriggerMethod    string `xml:"TriggerMethod"`
	Track            Track  `xml:"Track"`
}

type Track struct {
	Trackpoints []Trackpoint `xml:"Trackpoint"`
}

type Trackpoint struct {
	Time           string     `xml:"Time"`
	DistanceMeters string     `xml:"DistanceMeters"`
	Extensions     Extensions `xml:"Extensions"`
}

type Extensions struct {
	TPX TPX `xml:"tpx:TPX"`
}

type TPX struct {
	// Speed is meters per second, four decimal places.
	Speed string `xml:"tpx:Speed"`
}

// Summary carries the lap totals cached at end-of-recording.
type Summary struct {
	StartTime     time.Time
	TotalSeconds  float64
	TotalMeters   float64
	TotalCalories int
	AvgSpeedKmh   float64
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Encode builds the complete TCX document for one session.
// Pure; no disk or network I/O.
func Encode(trackpoints []telemetry.RawSample, summary Summary, act activity.Activity) (string, error) {
	doc := Document{
		Xmlns:    NSTrainingCenterDatabase,
		XmlnsXSI: NSXMLSchemaInstance,
		XmlnsTPX: NSActivityExtension,
		Activities: Activities{
			Activity: Activity{
				Sport: act.TCXSport(),
				ID:    formatTime(summary.StartTime),
				Lap: Lap{
					StartTime:        formatTime(summary.StartTime),
					TotalTimeSeconds: fmt.Sprintf("%.1f", summary.TotalSeconds),
					DistanceMeters:   fmt.Sprintf("%.1f", summary.TotalMeters),
					Calories:         summary.TotalCalories,
					Intensity:        "Active",
					TriggerMethod:    "Manual",
				},
			},
		},
	}

	points := make([]Trackpoint, 0, len(trackpoints))
	for _, tp := range trackpoints {
		points = append(points, Trackpoint{
			Time:           formatTime(tp.Time),
			DistanceMeters: fmt.Sprintf("%.1f", tp.DistanceM),
			Extensions: Extensions{
				TPX: TPX{
					Speed: fmt.Sprintf("%.4f", common.KmhToMs(tp.SpeedKmh)),
				},
			},
		})
	}
	doc.Activities.Activity.Lap.Track = Track{Trackpoints: points}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(body) + "\n", nil
}

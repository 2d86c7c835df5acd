package params

import "time"

type StravaConfig struct {
	TokenURL    string
	UploadURL   string
	ActivityURL string

	// HTTPTimeout bounds every individual request made by the uploader.
	HTTPTimeout time.Duration

	// TokenExpirySkew refreshes the access token this long before it
	// actually expires.
	TokenExpirySkew time.Duration

	// PollInterval and MaxPolls bound the upload-status poll loop;
	// their product is the processing deadline (2s * 30 = 60s).
	PollInterval time.Duration
	MaxPolls     int
}

func DefaultStravaConfig() *StravaConfig {
	return &StravaConfig{
		TokenURL:        "https://www.strava.com/oauth/token",
		UploadURL:       "https://www.strava.com/api/v3/uploads",
		ActivityURL:     "https://www.strava.com/api/v3/activities",
		HTTPTimeout:     60 * time.Second,
		TokenExpirySkew: 60 * time.Second,
		PollInterval:    2 * time.Second,
		MaxPolls:        30,
	}
}

// ActivityBaseURL is the public web URL prefix for finished activities.
const ActivityBaseURL = "https://www.strava.com/activities/"

// Viper keys for the persisted credential/options file.
// The refresh token is written back whenever Strava rotates it.
const (
	ConfStravaClientID     = "strava.client_id"
	ConfStravaClientSecret = "strava.client_secret"
	ConfStravaRefreshToken = "strava.refresh_token"
	ConfStravaActivityType = "strava.activity_type"
	ConfStravaNameTemplate = "strava.name_template"
	ConfStravaHideFromHome = "strava.hide_from_home"
	ConfStravaPrivate      = "strava.private"
	ConfStravaGearID       = "strava.gear_id"

	ConfMachineType = "machine.type"
	ConfDeviceName  = "machine.name"
)

// DefaultNameTemplate supports {activity}, {device}, {date},
// {distance_km} and {duration_min} placeholders.
const DefaultNameTemplate = "{activity} on {device}"

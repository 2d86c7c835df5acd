package strava

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Tokens is the result of the one-time authorization-code exchange.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Gear is one shoe or bike from the athlete profile, offered during
// setup so gear_id can be attached to uploads.
type Gear struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExchangeCode trades an OAuth authorization code for tokens.
// Used once, by setup tooling; uploads only ever refresh.
func (u *Uploader) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil, ErrClosed
	}
	form := url.Values{
		"client_id":     {u.clientID},
		"client_secret": {u.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := u.getClientLocked().Do(req)
	if err != nil {
		return nil, err
	}
	body, err := drain(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError("code exchange", resp.StatusCode, body)
	}
	parsed := gjson.ParseBytes(body)
	return &Tokens{
		AccessToken:  parsed.Get("access_token").String(),
		RefreshToken: parsed.Get("refresh_token").String(),
		ExpiresAt:    parsed.Get("expires_at").Int(),
	}, nil
}

// AthleteGear lists the athlete's shoes and bikes.
func (u *Uploader) AthleteGear(ctx context.Context) ([]Gear, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil, ErrClosed
	}
	if err := u.ensureTokenLocked(ctx); err != nil {
		return nil, err
	}
	athleteURL := strings.TrimSuffix(u.config.ActivityURL, "/activities") + "/athlete"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, athleteURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+u.accessToken)
	resp, err := u.getClientLocked().Do(req)
	if err != nil {
		return nil, err
	}
	body, err := drain(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError("athlete", resp.StatusCode, body)
	}

	gear := []Gear{}
	parsed := gjson.ParseBytes(body)
	for _, list := range []string{"shoes", "bikes"} {
		for _, item := range parsed.Get(list).Array() {
			g := Gear{ID: item.Get("id").String(), Name: item.Get("name").String()}
			if g.Name == "" {
				g.Name = g.ID
			}
			gear = append(gear, g)
		}
	}
	return gear, nil
}

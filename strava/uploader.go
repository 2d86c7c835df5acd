// Package strava manages OAuth token rotation and workout uploads
// against the Strava v3 API: refresh -> multipart upload -> status
// poll -> metadata patch, surviving token expiry, duplicates, and
// rate limits.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/types/activity"
	"github.com/tidwall/gjson"
)

// TokenPersistFunc is invoked with the new refresh token whenever the
// remote service rotates it. Its error is surfaced, not swallowed:
// a rotation that fails to persist means the stored token is dead.
type TokenPersistFunc func(refreshToken string) error

// UploadRequest carries one encoded workout and its metadata.
type UploadRequest struct {
	Filename     string
	Content      []byte
	Activity     activity.Activity
	Name         string
	HideFromHome bool
	Private      bool
	GearID       string
}

// Uploader holds one OAuth credential and one long-lived HTTP client.
// The HTTP client is constructed on first use and released exactly
// once by Close; every operation after Close errors.
//
// One mutex serializes every exported operation, so the daemon's
// startup retry pass, end-of-session uploads, and manual triggers
// queue rather than interleave on the shared credential.
type Uploader struct {
	mu     sync.Mutex
	config *params.StravaConfig
	logger *slog.Logger

	clientID     string
	clientSecret string
	refreshToken string
	persistToken TokenPersistFunc

	// In-memory only; never persisted.
	accessToken string
	expiresAt   time.Time

	http   *http.Client
	closed bool

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewUploader(config *params.StravaConfig, clientID, clientSecret, refreshToken string, persist TokenPersistFunc) *Uploader {
	if config == nil {
		config = params.DefaultStravaConfig()
	}
	return &Uploader{
		config:       config,
		logger:       slog.With("c", "strava"),
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		persistToken: persist,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// getClientLocked lazily constructs the persistent HTTP client,
// avoiding TLS setup cost for installs that never upload. Callers
// hold u.mu.
func (u *Uploader) getClientLocked() *http.Client {
	if u.http == nil {
		u.http = &http.Client{Timeout: u.config.HTTPTimeout}
	}
	return u.http
}

// Close releases the network connection. Idempotent close is not
// supported; callers own exactly one Close. Close waits for any
// in-flight operation to finish.
func (u *Uploader) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrClosed
	}
	u.closed = true
	if u.http != nil {
		u.http.CloseIdleConnections()
		u.http = nil
	}
	return nil
}

// EnsureToken refreshes the access token unless it still has more
// than the configured skew of validity left. A rotated refresh token
// is persisted through the callback before the credential is
// considered durable.
func (u *Uploader) EnsureToken(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ensureTokenLocked(ctx)
}

func (u *Uploader) ensureTokenLocked(ctx context.Context) error {
	if u.closed {
		return ErrClosed
	}
	if u.now().Before(u.expiresAt.Add(-u.config.TokenExpirySkew)) {
		return nil
	}

	form := url.Values{
		"client_id":     {u.clientID},
		"client_secret": {u.clientSecret},
		"refresh_token": {u.refreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.getClientLocked().Do(req)
	if err != nil {
		return err
	}
	body, err := drain(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return statusToError("token refresh", resp.StatusCode, body)
	}

	parsed := gjson.ParseBytes(body)
	u.accessToken = parsed.Get("access_token").String()
	u.expiresAt = time.Unix(parsed.Get("expires_at").Int(), 0)

	if rotated := parsed.Get("refresh_token").String(); rotated != "" && rotated != u.refreshToken {
		u.refreshToken = rotated
		if u.persistToken != nil {
			if err := u.persistToken(rotated); err != nil {
				return fmt.Errorf("persist rotated refresh token: %w", err)
			}
		}
		u.logger.Info("Rotated refresh token")
	}
	return nil
}

// Upload pushes one workout file through the whole remote pipeline
// and returns the public activity URL.
//
// Failure policy: only ErrDuplicateActivity is benign (caller deletes
// the file); every other error retains the file for a later retry.
func (u *Uploader) Upload(ctx context.Context, r *UploadRequest) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return "", ErrClosed
	}
	if err := u.ensureTokenLocked(ctx); err != nil {
		return "", err
	}

	uploadID, err := u.postFile(ctx, r)
	if isStatus(err, http.StatusUnauthorized) {
		// Stale token despite the skew check. Force a refresh and
		// retry exactly once; a second 401 is a hard failure.
		u.logger.Warn("401 during upload, forcing token refresh")
		u.expiresAt = time.Time{}
		if err := u.ensureTokenLocked(ctx); err != nil {
			return "", err
		}
		uploadID, err = u.postFile(ctx, r)
		if isStatus(err, http.StatusUnauthorized) {
			return "", &AuthError{Op: "upload"}
		}
	}
	if err != nil {
		return "", err
	}

	activityID, err := u.pollStatus(ctx, uploadID)
	if err != nil {
		return "", err
	}

	u.patchActivity(ctx, activityID, r)

	activityURL := fmt.Sprintf("%s%d", params.ActivityBaseURL, activityID)
	u.logger.Info("Uploaded", "activity", activityURL)
	return activityURL, nil
}

// postFile submits the multipart upload and returns the upload id.
func (u *Uploader) postFile(ctx context.Context, r *UploadRequest) (int64, error) {
	body := &strings.Builder{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", r.Filename)
	if err != nil {
		return 0, err
	}
	if _, err := fw.Write(r.Content); err != nil {
		return 0, err
	}
	_ = mw.WriteField("data_type", "tcx")
	_ = mw.WriteField("activity_type", strings.ToLower(r.Activity.String()))
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.UploadURL, strings.NewReader(body.String()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.accessToken)

	resp, err := u.getClientLocked().Do(req)
	if err != nil {
		return 0, err
	}
	respBody, err := drain(resp)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusConflict {
		return 0, ErrDuplicateActivity
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, statusToError("upload", resp.StatusCode, respBody)
	}
	return gjson.GetBytes(respBody, "id").Int(), nil
}

// pollStatus polls the upload-status endpoint until a terminal state
// or the poll cap. The cap, not a cancellable deadline, bounds this
// loop.
func (u *Uploader) pollStatus(ctx context.Context, uploadID int64) (int64, error) {
	statusURL := fmt.Sprintf("%s/%d", u.config.UploadURL, uploadID)
	for i := 0; i < u.config.MaxPolls; i++ {
		if err := u.sleep(ctx, u.config.PollInterval); err != nil {
			return 0, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+u.accessToken)
		resp, err := u.getClientLocked().Do(req)
		if err != nil {
			return 0, err
		}
		body, err := drain(resp)
		if err != nil {
			return 0, err
		}
		if resp.StatusCode != http.StatusOK {
			return 0, statusToError("upload status", resp.StatusCode, body)
		}

		parsed := gjson.ParseBytes(body)
		if id := parsed.Get("activity_id").Int(); id != 0 {
			return id, nil
		}
		if errStr := parsed.Get("error").String(); errStr != "" {
			if strings.Contains(strings.ToLower(errStr), "duplicate") {
				u.logger.Warn("Duplicate activity", "error", errStr)
				return 0, ErrDuplicateActivity
			}
			return 0, &UploadError{Detail: errStr}
		}
	}
	return 0, ErrProcessingTimeout
}

// patchActivity finalizes name, sport, and visibility. A failure here
// is logged, never propagated: the activity exists, only its metadata
// may be incomplete.
func (u *Uploader) patchActivity(ctx context.Context, activityID int64, r *UploadRequest) {
	payload := map[string]any{
		"name":       r.Name,
		"sport_type": r.Activity.String(),
	}
	if r.HideFromHome {
		payload["hide_from_home"] = true
	}
	if r.Private {
		payload["visibility"] = "only_me"
	}
	if r.GearID != "" {
		payload["gear_id"] = r.GearID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		u.logger.Warn("Failed to encode activity patch", "error", err)
		return
	}
	patchURL := fmt.Sprintf("%s/%d", u.config.ActivityURL, activityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, patchURL, strings.NewReader(string(body)))
	if err != nil {
		u.logger.Warn("Failed to build activity patch", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.accessToken)

	resp, err := u.getClientLocked().Do(req)
	if err != nil {
		u.logger.Warn("Failed to patch activity", "activity", activityID, "error", err)
		return
	}
	respBody, _ := drain(resp)
	if resp.StatusCode != http.StatusOK {
		u.logger.Warn("Failed to patch activity",
			"activity", activityID, "status", resp.StatusCode, "body", string(respBody))
	}
}

func drain(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func statusToError(op string, code int, body []byte) error {
	if code == http.StatusTooManyRequests {
		return &RateLimitError{Op: op}
	}
	return &StatusError{Op: op, Code: code, Detail: string(body)}
}

func isStatus(err error, code int) bool {
	se, ok := err.(*StatusError)
	return ok && se.Code == code
}

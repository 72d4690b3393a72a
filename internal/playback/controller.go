// Package playback fetches historical telemetry and replays it through the
// same overlay update path the live feed uses, with the entity suspended
// from live updates for the duration of the replay session.
package playback

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/parser"
	"github.com/harborwatch/harborwatch/pkg/feed"
)

const (
	// fetchTimeout bounds one history download. Long-range queries stream
	// for minutes, so this is generous.
	fetchTimeout = 30 * time.Minute

	// progressEvery is how many parsed records accumulate between
	// progressive redraw callbacks during a streaming fetch.
	progressEvery = 100

	// defaultIntervalSec is the server-side downsampling interval used when
	// the caller gives none: every record.
	defaultIntervalSec = 1
)

// FetchError is a non-2xx history response, carrying the server's message
// when it sent one.
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("history fetch failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("history fetch failed (%d)", e.StatusCode)
}

// Controller issues history queries and opens replay sessions.
type Controller struct {
	client  *http.Client
	baseURL string
	parser  *parser.Parser
	logger  *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// NewController creates a controller for the history API at baseURL.
func NewController(baseURL string, p *parser.Parser, logger *slog.Logger) *Controller {
	return &Controller{
		client:  &http.Client{Timeout: fetchTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		parser:  p,
		logger:  logger,
	}
}

// LastError returns the most recent fetch failure, or nil after a fetch that
// succeeded. The retry affordance on the detail panel reads it.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) historyURL(kind, identity string, start, end time.Time, intervalSec int) string {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	if intervalSec > 0 {
		q.Set("interval", strconv.Itoa(intervalSec))
	}
	return fmt.Sprintf("%s/api/history/%s/%s?%s", c.baseURL, kind, url.PathEscape(identity), q.Encode())
}

func (c *Controller) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building history request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		fe := &FetchError{StatusCode: resp.StatusCode}
		var body feed.ErrorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
			fe.Message = body.Message
		}
		return nil, fe
	}
	return resp, nil
}

// FetchVesselHistory downloads and parses a vessel's track for the window,
// downsampled server-side to one record per intervalSec seconds (minimum 1).
// The endpoint streams comma-separated JSON objects with no enclosing
// brackets; records are decoded incrementally as they arrive and progress,
// when set, is invoked with the samples parsed so far every progressEvery
// records. Malformed records are skipped with a warning.
func (c *Controller) FetchVesselHistory(ctx context.Context, callSign string, start, end time.Time, intervalSec int, progress func([]core.HistorySample)) (samples []core.HistorySample, err error) {
	defer func() { c.setLastError(err) }()
	if intervalSec < 1 {
		intervalSec = defaultIntervalSec
	}
	resp, err := c.get(ctx, c.historyURL("vessel", callSign, start, end, intervalSec))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Bracket the stream so it decodes as one JSON array.
	dec := json.NewDecoder(io.MultiReader(
		strings.NewReader("["),
		resp.Body,
		strings.NewReader("]"),
	))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading history stream: %w", err)
	}

	sinceProgress := 0
	for dec.More() {
		var rec feed.VesselHistoryRecord
		if err := dec.Decode(&rec); err != nil {
			return samples, fmt.Errorf("decoding history record: %w", err)
		}
		sample, err := c.parser.ParseVesselSample(rec)
		if err != nil {
			c.logger.Warn("Skipping malformed history record",
				"callSign", callSign, "error", err)
			continue
		}
		samples = append(samples, sample)
		sinceProgress++
		if progress != nil && sinceProgress >= progressEvery {
			progress(samples)
			sinceProgress = 0
		}
	}

	sortSamples(samples)
	if progress != nil && len(samples) > 0 {
		progress(samples)
	}
	return samples, nil
}

// FetchSensorHistory downloads and parses a sensor's readings for the
// window. The endpoint streams newline-delimited JSON; the tide reading is
// extracted from each record's embedded raw payload. Lines that are not
// readings are skipped.
func (c *Controller) FetchSensorHistory(ctx context.Context, sensorID string, start, end time.Time, progress func([]core.HistorySample)) (samples []core.HistorySample, err error) {
	defer func() { c.setLastError(err) }()
	resp, err := c.get(ctx, c.historyURL("sensor", sensorID, start, end, 0))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	sinceProgress := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec feed.SensorHistoryRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			c.logger.Warn("Skipping undecodable history line",
				"sensor", sensorID, "error", err)
			continue
		}
		sample, err := c.parser.ParseSensorSample(rec)
		if err != nil {
			continue // not a tide reading
		}
		samples = append(samples, sample)
		sinceProgress++
		if progress != nil && sinceProgress >= progressEvery {
			progress(samples)
			sinceProgress = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return samples, fmt.Errorf("reading history stream: %w", err)
	}

	sortSamples(samples)
	if progress != nil && len(samples) > 0 {
		progress(samples)
	}
	return samples, nil
}

func sortSamples(samples []core.HistorySample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
}

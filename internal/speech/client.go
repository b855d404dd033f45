package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kirved/tabscribe/internal/transcript"
)

const defaultBaseURL = "https://api.assemblyai.com"

// Remote job statuses as returned by the poll endpoint.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Progress receives human-readable stage notifications. It is advisory
// only: callers must not make control decisions from it.
type Progress func(stage string)

// Client submits recorded audio to the speech service and polls the
// transcription job to completion.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the service endpoint, primarily for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval overrides the fixed delay between job status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxPolls caps the number of poll iterations. Zero means unbounded,
// which mirrors the service's documented behavior of always reaching a
// terminal status eventually.
func WithMaxPolls(n int) Option {
	return func(c *Client) { c.maxPolls = n }
}

// NewClient creates a transcription client authenticated with the given
// service key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      defaultBaseURL,
		apiKey:       apiKey,
		pollInterval: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	AutoChapters  bool   `json:"auto_chapters"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type remoteUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
}

type remoteChapter struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
}

type pollResponse struct {
	Status     string            `json:"status"`
	Utterances []remoteUtterance `json:"utterances"`
	Chapters   []remoteChapter   `json:"chapters"`
	Error      string            `json:"error"`
}

// Transcribe uploads the audio payload, submits a diarized auto-chaptered
// transcription job, polls it to a terminal status, and normalizes the
// result. The poll loop honors ctx cancellation; progress fires on upload,
// submit, every poll iteration (verbatim remote status), and normalization.
func (c *Client) Transcribe(ctx context.Context, audio []byte, progress Progress) (transcript.Transcript, error) {
	notify := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	notify("uploading audio")
	audioURL, err := c.upload(ctx, audio)
	if err != nil {
		return transcript.Transcript{}, err
	}

	notify("submitting transcription job")
	jobID, err := c.submit(ctx, audioURL)
	if err != nil {
		return transcript.Transcript{}, err
	}

	result, err := c.poll(ctx, jobID, notify)
	if err != nil {
		return transcript.Transcript{}, err
	}

	notify("normalizing transcript")
	return normalize(result), nil
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UploadError{Status: resp.Status}
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return parsed.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
		AutoChapters:  true,
	})
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit transcription job: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SubmitError{Status: resp.Status}
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	return parsed.ID, nil
}

func (c *Client) poll(ctx context.Context, jobID string, notify func(string)) (pollResponse, error) {
	attempts := 0
	for {
		result, err := c.fetchJob(ctx, jobID)
		if err != nil {
			return pollResponse{}, err
		}

		notify("transcription " + result.Status)

		switch result.Status {
		case StatusCompleted:
			return result, nil
		case StatusError:
			return pollResponse{}, &JobError{Remote: result.Error}
		}

		attempts++
		if c.maxPolls > 0 && attempts >= c.maxPolls {
			return pollResponse{}, &JobError{Remote: fmt.Sprintf("timed out after %d polls", attempts)}
		}

		select {
		case <-ctx.Done():
			return pollResponse{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) fetchJob(ctx context.Context, jobID string) (pollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return pollResponse{}, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pollResponse{}, fmt.Errorf("poll transcription job: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pollResponse{}, fmt.Errorf("poll transcription job: unexpected status %s", resp.Status)
	}

	var parsed pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return pollResponse{}, fmt.Errorf("decode poll response: %w", err)
	}
	return parsed, nil
}

// normalize maps the terminal service response into the internal transcript
// shape. Absent or empty utterance/chapter lists become empty slices,
// never nil.
func normalize(r pollResponse) transcript.Transcript {
	out := transcript.Transcript{
		Utterances: make([]transcript.Utterance, 0, len(r.Utterances)),
		Chapters:   make([]transcript.Chapter, 0, len(r.Chapters)),
	}

	for _, u := range r.Utterances {
		out.Utterances = append(out.Utterances, transcript.Utterance{
			Speaker: "Speaker " + u.Speaker,
			Text:    u.Text,
			Seconds: float64(u.Start) / 1000,
		})
	}

	for _, ch := range r.Chapters {
		out.Chapters = append(out.Chapters, transcript.Chapter{
			Title:        ch.Headline,
			Summary:      ch.Summary,
			StartSeconds: float64(ch.Start) / 1000,
			EndSeconds:   float64(ch.End) / 1000,
		})
	}

	return out
}

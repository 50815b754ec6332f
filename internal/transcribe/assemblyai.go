package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
)

// AssemblyAIClient produces speaker-labelled transcripts from audio via the
// AssemblyAI REST API: upload the media, create a transcription job with
// diarization enabled, then poll until it settles.
type AssemblyAIClient struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       arbor.ILogger
}

// NewAssemblyAIClient creates a transcription client from config. The
// configured timeout bounds each individual HTTP call, not the whole job;
// overall transcription time is bounded by the caller's context.
func NewAssemblyAIClient(cfg common.TranscriptionConfig, logger arbor.ILogger) *AssemblyAIClient {
	return &AssemblyAIClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: common.ParseDurationOr(cfg.PollInterval, 3*time.Second),
		httpClient:   &http.Client{Timeout: common.ParseDurationOr(cfg.Timeout, time.Minute)},
		logger:       logger,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type transcriptResponse struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Text       string      `json:"text"`
	Error      string      `json:"error"`
	Utterances []utterance `json:"utterances"`
}

// Transcribe uploads audio and waits for the diarized transcript. The result
// is one line per utterance in "Speaker X: text" form, falling back to the
// flat transcript text when no utterances are returned.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	id, err := c.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	c.logger.Info().Str("transcript_id", id).Msg("Transcription submitted")

	result, err := c.poll(ctx, id)
	if err != nil {
		return "", err
	}

	if len(result.Utterances) == 0 {
		return result.Text, nil
	}

	var b strings.Builder
	for i, u := range result.Utterances {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Speaker %s: %s", u.Speaker, u.Text)
	}
	return b.String(), nil
}

func (c *AssemblyAIClient) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("audio upload failed: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("audio upload returned no url")
	}
	return out.UploadURL, nil
}

func (c *AssemblyAIClient) createTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"audio_url":      audioURL,
		"speaker_labels": true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("transcript request failed: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("transcript request returned no id")
	}
	return out.ID, nil
}

func (c *AssemblyAIClient) poll(ctx context.Context, id string) (*transcriptResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)

		var out transcriptResponse
		if err := c.do(req, &out); err != nil {
			return nil, fmt.Errorf("transcript poll failed: %w", err)
		}

		switch out.Status {
		case "completed":
			return &out, nil
		case "error":
			return nil, fmt.Errorf("transcription failed upstream: %s", out.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *AssemblyAIClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

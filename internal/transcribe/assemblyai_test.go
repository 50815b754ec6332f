package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribo/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) (*AssemblyAIClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewAssemblyAIClient(common.TranscriptionConfig{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		Timeout:      "5s",
		PollInterval: "10ms",
	}, common.GetLogger())
	return client, server
}

func TestTranscribe(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example/audio", body["audio_url"])
		assert.Equal(t, true, body["speaker_labels"])
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_1", "status": "queued"})
	})
	mux.HandleFunc("GET /v2/transcript/tr_1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(map[string]string{"id": "tr_1", "status": "processing"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "tr_1",
			"status": "completed",
			"text":   "Hello there. Hi.",
			"utterances": []map[string]string{
				{"speaker": "A", "text": "Hello there."},
				{"speaker": "B", "text": "Hi."},
			},
		})
	})

	client, _ := newTestClient(t, mux)
	text, err := client.Transcribe(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "Speaker A: Hello there.\nSpeaker B: Hi.", text)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestTranscribe_NoUtterances(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_2", "status": "queued"})
	})
	mux.HandleFunc("GET /v2/transcript/tr_2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_2", "status": "completed", "text": "flat transcript"})
	})

	client, _ := newTestClient(t, mux)
	text, err := client.Transcribe(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, "flat transcript", text)
}

func TestTranscribe_UpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_3", "status": "queued"})
	})
	mux.HandleFunc("GET /v2/transcript/tr_3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_3", "status": "error", "error": "unintelligible audio"})
	})

	client, _ := newTestClient(t, mux)
	_, err := client.Transcribe(context.Background(), []byte{0x01})
	assert.ErrorContains(t, err, "unintelligible audio")
}

func TestTranscribe_UploadRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.Transcribe(context.Background(), []byte{0x01})
	assert.ErrorContains(t, err, "audio upload failed")
	assert.ErrorContains(t, err, "401")
}

func TestTranscribe_ContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_4", "status": "queued"})
	})
	mux.HandleFunc("GET /v2/transcript/tr_4", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr_4", "status": "processing"})
	})

	client, _ := newTestClient(t, mux)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Transcribe(ctx, []byte{0x01})
	assert.Error(t, err)
}

package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// errTransient marks server responses worth retrying (502/503/504).
var errTransient = errors.New("transient server error")

// FasterWhisperClient talks to a faster-whisper server exposing the
// OpenAI-compatible transcription endpoint (e.g. speaches / faster-whisper-server)
type FasterWhisperClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewFasterWhisperClient creates a client for a faster-whisper server
func NewFasterWhisperClient(baseURL, model string) *FasterWhisperClient {
	if model == "" {
		model = "small"
	}
	return &FasterWhisperClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // transcription can be very long
		},
	}
}

func (c *FasterWhisperClient) Name() string {
	return "faster-whisper"
}

// Transcribe sends an audio file to the faster-whisper server and returns VTT
func (c *FasterWhisperClient) Transcribe(ctx context.Context, req TranscribeRequest, updateProgress func(float64)) (*TranscribeResult, error) {
	updateProgress(0.05)
	result, err := c.sendWithRetry(ctx, req, updateProgress)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *FasterWhisperClient) sendWithRetry(ctx context.Context, req TranscribeRequest, updateProgress func(float64)) (*TranscribeResult, error) {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[faster-whisper] retry %d/%d after %v", attempt, maxRetries, backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := c.doSend(ctx, req, updateProgress)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if isOOMError(err.Error()) {
			return nil, fmt.Errorf("GPU out of memory — try a smaller model: %w", err)
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !errors.Is(err, errTransient) && !isRetryableError(0, err) {
			return nil, err
		}

		log.Printf("[faster-whisper] transient error (attempt %d/%d): %v", attempt+1, maxRetries+1, err)
	}

	return nil, fmt.Errorf("faster-whisper server failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (c *FasterWhisperClient) doSend(ctx context.Context, req TranscribeRequest, updateProgress func(float64)) (*TranscribeResult, error) {
	// Build multipart form
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// Add audio file
	audioFile, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	// Add parameters
	writer.WriteField("model", c.model)
	writer.WriteField("response_format", "vtt")
	if req.Language != "" && req.Language != "auto" {
		writer.WriteField("language", req.Language)
	}
	if req.Prompt != "" {
		writer.WriteField("prompt", req.Prompt)
	}

	writer.Close()

	updateProgress(0.15)

	// Send request — uses OpenAI-compatible endpoint
	url := c.baseURL + "/v1/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	log.Printf("[faster-whisper] sending request to %s (audio: %s)", url, req.AudioPath)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("faster-whisper server request: %w", err)
	}
	defer resp.Body.Close()

	updateProgress(0.9)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyStr := string(body)
		if isOOMError(bodyStr) {
			return nil, fmt.Errorf("GPU out of memory (status %d): %s", resp.StatusCode, bodyStr)
		}
		if isRetryableError(resp.StatusCode, nil) {
			return nil, fmt.Errorf("%w: status %d: %s", errTransient, resp.StatusCode, bodyStr)
		}
		return nil, fmt.Errorf("faster-whisper server error (status %d): %s", resp.StatusCode, bodyStr)
	}

	vtt := string(body)

	// Ensure VTT header
	if !strings.HasPrefix(strings.TrimSpace(vtt), "WEBVTT") {
		vtt = "WEBVTT\n\n" + vtt
	}

	updateProgress(0.95)

	return &TranscribeResult{
		VTT:      vtt,
		Language: req.Language,
	}, nil
}

package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"
)

// HTTPClient posts chunks as multipart form data to a transcription endpoint
// that answers with a JSON word list.
type HTTPClient struct {
	*limiter
	httpClient *http.Client
}

// NewHTTPClient creates a new transcription HTTP client
func NewHTTPClient(config Config) (*HTTPClient, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	config = applyDefaults(config)

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPClient{
		limiter:    newLimiter(config),
		httpClient: httpClient,
	}, nil
}

// Transcribe sends an audio chunk for transcription
func (c *HTTPClient) Transcribe(ctx context.Context, request *Request) (*Response, error) {
	return c.run(ctx, request, c.doRequest)
}

// doRequest performs a single HTTP request to the transcription API
func (c *HTTPClient) doRequest(ctx context.Context, request *Request) (json.RawMessage, error) {
	body, contentType, err := c.createMultipartRequest(request)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "WordClip-Service/1.0")
	httpReq.Header.Set("X-Request-ID", request.RequestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return json.RawMessage(respBody), nil
}

// createMultipartRequest creates a multipart/form-data request body
func (c *HTTPClient) createMultipartRequest(request *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if len(request.AudioData) > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="audio"; filename="%s"`, request.Filename()))
		header.Set("Content-Type", request.MimeType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}

		if _, err := part.Write(request.AudioData); err != nil {
			return nil, "", fmt.Errorf("failed to write audio data: %w", err)
		}
	}

	fields := [][2]string{
		{"session_id", request.SessionID},
		{"chunk_index", strconv.Itoa(request.ChunkIndex)},
		{"offset", strconv.FormatFloat(request.OffsetSeconds, 'f', 3, 64)},
		{"duration", strconv.FormatFloat(request.DurationSeconds, 'f', 3, 64)},
		{"sample_rate", strconv.Itoa(request.SampleRate)},
		{"mime_type", request.MimeType},
		{"request_id", request.RequestID},
		{"request_timestamp", request.Timestamp.Format(time.RFC3339)},
	}

	language := request.Language
	if language == "" {
		language = c.config.Language
	}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}

	model := request.Model
	if model == "" {
		model = c.config.Model
	}
	if model != "" {
		fields = append(fields, [2]string{"model", model})
	}

	if request.Prompt != "" {
		fields = append(fields, [2]string{"prompt", request.Prompt})
	}

	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/skypro1111/wordclip-service/internal/transcript"
)

// OpenAIClient transcribes chunks with OpenAI's audio transcription API,
// asking for word-level timestamps.
type OpenAIClient struct {
	*limiter
	client *openai.Client
}

// NewOpenAIClient creates a client for the OpenAI backend. Endpoint, when set,
// replaces the API base URL.
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	config = applyDefaults(config)
	if config.Model == "" {
		config.Model = openai.Whisper1
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIClient{
		limiter: newLimiter(config),
		client:  openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Transcribe sends an audio chunk for transcription
func (c *OpenAIClient) Transcribe(ctx context.Context, request *Request) (*Response, error) {
	return c.run(ctx, request, c.doRequest)
}

func (c *OpenAIClient) doRequest(ctx context.Context, request *Request) (json.RawMessage, error) {
	model := request.Model
	if model == "" {
		model = c.config.Model
	}

	language := request.Language
	if language == "" {
		language = c.config.Language
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: request.Filename(),
		Reader:   bytes.NewReader(request.AudioData),
		Prompt:   request.Prompt,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, asStatusError(err)
	}

	words := make([]transcript.Word, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = transcript.Word{Text: w.Word, StartTime: w.Start, EndTime: w.End}
	}

	payload, err := json.Marshal(words)
	if err != nil {
		return nil, fmt.Errorf("failed to encode words: %w", err)
	}

	return payload, nil
}

// asStatusError exposes the HTTP status of an OpenAI failure so the retry
// loop can classify it.
func asStatusError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error(), Err: err}
	}

	return fmt.Errorf("openai request failed: %w", err)
}

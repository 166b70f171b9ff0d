// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package vision asks a chat-completion model which catalog breed a photo
// shows.
package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/chickenai/breeds-gw/pkg/credential"
	"github.com/chickenai/breeds-gw/pkg/observability/logging"
)

// Defaults for the classification request.
const (
	DefaultBaseURL     = "https://api.openai.com/v1/"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 50
	DefaultTemperature = 0.3
	DefaultTimeout     = 30 * time.Second
)

// Config configures a Client. Zero values select the defaults above.
type Config struct {
	BaseURL   string
	Model     string
	MaxTokens int
	// Temperature is a pointer so that an explicit 0 is honored; nil selects
	// DefaultTemperature.
	Temperature     *float64
	JPEGQuality     int
	Timeout         time.Duration
	StripCodeFences bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	logger     *logging.Logger
}

// WithHTTPClient sets the HTTP client used for the classification call.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// Client classifies a photo into one of a fixed list of breed names.
type Client struct {
	cfg          Config
	client       openai.Client
	credentials  credential.Provider
	systemPrompt string
	logger       *logging.Logger
}

// New creates a Client constrained to names, in the given order.
func New(cfg Config, names []string, creds credential.Provider, opts ...Option) *Client {
	cfg.applyDefaults()

	o := clientOptions{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
		option.WithMiddleware(statusMiddleware),
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	return &Client{
		cfg:          cfg,
		client:       openai.NewClient(reqOpts...),
		credentials:  creds,
		systemPrompt: SystemPrompt(names),
		logger:       o.logger,
	}
}

// Identify returns the model's breed label for image, trimmed of surrounding
// whitespace. The label is not validated against the catalog. Every failure
// is an *Error.
func (c *Client) Identify(ctx context.Context, image []byte) (string, error) {
	encoded, err := EncodeImage(image, c.cfg.JPEGQuality)
	if err != nil {
		return "", &Error{Kind: KindImageEncoding, Cause: err}
	}

	key, err := c.credentials.Credential(ctx)
	if err != nil {
		return "", &Error{Kind: KindCredential, Cause: err}
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(UserInstruction),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: DataURI(encoded),
				}),
			}),
		},
		MaxTokens:   openai.Int(int64(c.cfg.MaxTokens)),
		Temperature: openai.Float(*c.cfg.Temperature),
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	completion, err := c.client.Chat.Completions.New(callCtx, params, option.WithAPIKey(key))
	if err != nil {
		return "", classify(err)
	}
	if len(completion.Choices) == 0 {
		return "", &Error{Kind: KindDecode, Cause: errors.New("response has no choices")}
	}
	message := completion.Choices[0].Message
	if !message.JSON.Content.Valid() {
		return "", &Error{Kind: KindDecode, Cause: errors.New("first choice has no message content")}
	}

	label := message.Content
	if c.cfg.StripCodeFences {
		label = stripCodeFence(label)
	}
	label = strings.TrimSpace(label)

	c.logger.Debug("Model returned label", "label", label, "model", completion.Model)
	return label, nil
}

// statusError carries a non-200 status out of the middleware.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("backend returned status %d", e.code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.code, e.body)
}

// transportError marks a failure to obtain any HTTP response.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// statusMiddleware accepts only 200 responses, so the SDK never decodes an
// error body or a 2xx variant as a completion.
func statusMiddleware(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	res, err := next(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &statusError{code: res.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return res, nil
}

func classify(err error) *Error {
	var se *statusError
	if errors.As(err, &se) {
		return &Error{Kind: KindUnexpectedStatus, Status: se.code, Cause: err}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindUnexpectedStatus, Status: apiErr.StatusCode, Cause: err}
	}
	var te *transportError
	if errors.As(err, &te) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Cause: err}
	}
	return &Error{Kind: KindDecode, Cause: err}
}

// stripCodeFence removes a surrounding Markdown code fence, with or without a
// language tag, from s.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	inner := t[3 : len(t)-3]
	// Drop a language tag on the opening line when content follows it.
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.ContainsAny(inner[:nl], " \t") {
		if rest := inner[nl+1:]; strings.TrimSpace(rest) != "" {
			inner = rest
		}
	}
	return inner
}

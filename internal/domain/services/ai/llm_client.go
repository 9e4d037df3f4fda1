package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

const (
	classifierSystemPrompt = "You are a strict scam intent classifier."
	classifierPrompt       = "Answer only YES or NO. " +
		"Is this message attempting financial fraud, phishing, impersonation, coercion, or extortion?\n" +
		"Message: %s"

	openRouterReferer = "http://localhost:8000"
)

// ErrLLMNotConfigured is returned when no API key is set
var ErrLLMNotConfigured = errors.New("LLM API key not configured")

// LLMClient talks to an OpenAI-compatible chat completion API. It backs both
// the scam oracle and the persona replies.
type LLMClient struct {
	logger     *logger.Logger
	config     LLMConfig
	classifier *openai.Client
	replier    *openai.Client
}

// LLMConfig holds LLM client configuration
type LLMConfig struct {
	APIKey  string
	BaseURL string // full chat completions URL or API base
	Model   string

	ReplyTimeout     time.Duration
	ReplyMaxTokens   int
	ReplyTemperature float32

	ClassifierTimeout time.Duration

	// AllowedHosts are the extra hosts a request may send persona replies to.
	// Entries without a port match any port. The BaseURL host is always allowed.
	AllowedHosts []string

	// Transport is used for outbound requests, http.DefaultTransport when nil
	Transport http.RoundTripper
}

// NewLLMClient creates a new LLM client
func NewLLMClient(cfg LLMConfig, log *logger.Logger) *LLMClient {
	if cfg.ReplyTimeout == 0 {
		cfg.ReplyTimeout = 30 * time.Second
	}
	if cfg.ReplyMaxTokens == 0 {
		cfg.ReplyMaxTokens = 200
	}
	if cfg.ReplyTemperature == 0 {
		cfg.ReplyTemperature = 0.9
	}
	if cfg.ClassifierTimeout == 0 {
		cfg.ClassifierTimeout = 10 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}

	c := &LLMClient{
		logger: log.WithComponent("llm-client"),
		config: cfg,
	}
	c.classifier = c.newClient(cfg.BaseURL, "Honeypot Scam Classifier")
	c.replier = c.newClient(cfg.BaseURL, "Honeypot Agent")
	return c
}

// Configured reports whether an API key is available
func (c *LLMClient) Configured() bool {
	return c != nil && c.config.APIKey != ""
}

// Classify asks the model whether text is a scam attempt. ok is false on any
// transport error, timeout or answer that is neither yes nor no.
func (c *LLMClient) Classify(ctx context.Context, text string) (verdict bool, ok bool) {
	if !c.Configured() {
		return false, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.ClassifierTimeout)
	defer cancel()

	content, err := c.complete(ctx, c.classifier, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(classifierPrompt, text)},
		},
		MaxTokens: 3,
		// zero is dropped by omitempty
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("scam classification failed")
		return false, false
	}

	return parseVerdict(content)
}

func parseVerdict(content string) (verdict bool, ok bool) {
	answer := strings.ToLower(strings.TrimSpace(content))
	switch {
	case strings.HasPrefix(answer, "yes"):
		return true, true
	case strings.HasPrefix(answer, "no"):
		return false, true
	default:
		return false, false
	}
}

// ReplyRequest is the input for a persona reply
type ReplyRequest struct {
	SystemPrompt string
	History      []models.Turn // prior turns, excluding Message
	Message      string

	// Optional per-request endpoint overrides
	BaseURL string
	Model   string
}

// Reply generates the persona's next message. Failures are returned as
// inline text so the conversation can continue.
func (c *LLMClient) Reply(ctx context.Context, req ReplyRequest) string {
	if !c.Configured() {
		return fmt.Sprintf("[System Error: %s]", ErrLLMNotConfigured)
	}

	client := c.replier
	if base := strings.TrimSpace(req.BaseURL); base != "" {
		// The override carries the server's API key, so unknown hosts are ignored.
		if c.hostAllowed(base) {
			client = c.newClient(base, "Honeypot Agent")
		} else {
			c.logger.Warn().Str("llm_url", base).Msg("ignoring LLM endpoint override for unlisted host")
		}
	}
	model := c.config.Model
	if m := strings.TrimSpace(req.Model); m != "" {
		model = m
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	ctx, cancel := context.WithTimeout(ctx, c.config.ReplyTimeout)
	defer cancel()

	content, err := c.complete(ctx, client, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.config.ReplyMaxTokens,
		Temperature: c.config.ReplyTemperature,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("model", model).Msg("persona reply failed")
		return inlineError(err)
	}
	return content
}

func (c *LLMClient) complete(ctx context.Context, client *openai.Client, req openai.ChatCompletionRequest) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// inlineError renders a completion failure as reply text
func inlineError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("[API Error %d]: %s. Please check your API key and LLM settings.", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			detail = reqErr.Err.Error()
		}
		return fmt.Sprintf("[API Error %d]: %s. Please check your API key and LLM settings.", reqErr.HTTPStatusCode, detail)
	}
	return fmt.Sprintf("[System Error: %v]", err)
}

func (c *LLMClient) newClient(baseURL, title string) *openai.Client {
	cfg := openai.DefaultConfig(c.config.APIKey)
	if base := apiBase(baseURL); base != "" {
		cfg.BaseURL = base
	}

	transport := c.config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if strings.Contains(baseURL, "openrouter.ai") {
		transport = &openRouterTransport{base: transport, title: title}
	}
	cfg.HTTPClient = &http.Client{Transport: transport}

	return openai.NewClientWithConfig(cfg)
}

// hostAllowed reports whether raw points at the configured endpoint host or
// at one of the allowed hosts.
func (c *LLMClient) hostAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	configured := strings.TrimSpace(c.config.BaseURL)
	if configured == "" {
		configured = openai.DefaultConfig("").BaseURL
	}
	if cu, err := url.Parse(configured); err == nil && strings.EqualFold(cu.Host, u.Host) {
		return true
	}

	for _, h := range c.config.AllowedHosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if strings.EqualFold(h, u.Host) || (!strings.Contains(h, ":") && strings.EqualFold(h, u.Hostname())) {
			return true
		}
	}
	return false
}

// apiBase turns a full chat completions URL into the API base the client
// appends paths to.
func apiBase(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, "/chat/completions")
}

// openRouterTransport adds the attribution headers OpenRouter asks for
type openRouterTransport struct {
	base  http.RoundTripper
	title string
}

func (t *openRouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", openRouterReferer)
	req.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(req)
}

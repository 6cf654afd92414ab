package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"aminestudio/internal/config"
)

// CredentialProvider supplies the API key at client construction time.
type CredentialProvider func() string

// EnvCredential reads the key from the standard environment variable.
func EnvCredential() CredentialProvider {
	return func() string { return os.Getenv(config.APIKeyEnv) }
}

// StaticCredential returns the given key as-is. Intended for tests.
func StaticCredential(key string) CredentialProvider {
	return func() string { return key }
}

// Config holds the transport settings for the backend.
type Config struct {
	BaseURL    string
	Model      string
	ImageModel string
	Timeout    time.Duration
}

// Client talks to the generateContent endpoint over plain HTTP.
type Client struct {
	cfg        Config
	creds      CredentialProvider
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.RWMutex
	apiKey string
}

// NewClient resolves credentials once and returns a ready client.
// A missing key does not fail construction; every Generate call will
// return a KindAuth error until Reload finds a key.
func NewClient(cfg Config, creds CredentialProvider, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	key := ""
	if creds != nil {
		key = creds()
	}
	if key == "" {
		logger.Warn("gemini api key not set, generation disabled",
			zap.String("env", config.APIKeyEnv))
	}
	return &Client{
		cfg:        cfg,
		creds:      creds,
		apiKey:     key,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Reload re-reads the credential provider, picking up a key that was
// set after startup.
func (c *Client) Reload() {
	if c.creds == nil {
		return
	}
	key := c.creds()
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// Configured reports whether the client holds a credential.
func (c *Client) Configured() bool { return c.key() != "" }

// Turn is one prior exchange in a conversation, oldest first.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Payload describes a single generation request.
type Payload struct {
	System         string
	Text           string
	Image          *DataURI
	History        []Turn
	Temperature    *float64
	ThinkingBudget int
	ResponseSchema map[string]any
	WantImage      bool
	AspectRatio    string
	Resolution     string
}

// Reply carries the usable parts of the first candidate.
type Reply struct {
	Text  string
	Image *DataURI
}

// Generate performs one generateContent call. It never retries; wrap
// with Do for backoff.
func (c *Client) Generate(ctx context.Context, p Payload) (*Reply, error) {
	apiKey := c.key()
	if apiKey == "" {
		return nil, newError(KindAuth, "API key not configured")
	}
	if p.Text == "" && p.Image == nil {
		return nil, newError(KindMalformedInput, "payload has no text or image")
	}

	model := c.cfg.Model
	if p.WantImage {
		model = c.cfg.ImageModel
	}

	body, err := json.Marshal(c.buildRequest(p))
	if err != nil {
		return nil, wrapError(KindMalformedInput, "encode request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(KindNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(KindNetwork, "call backend", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(KindNetwork, "read response", err)
	}
	c.logger.Debug("generateContent",
		zap.String("model", model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, string(raw))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, wrapError(KindMalformedResponse, "decode response", err)
	}
	if parsed.Error != nil {
		return nil, classifyStatus(parsed.Error.Code, parsed.Error.Message)
	}
	return extractReply(&parsed)
}

func (c *Client) buildRequest(p Payload) *generateRequest {
	req := &generateRequest{}

	if p.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: p.System}}}
	}

	for _, turn := range p.History {
		role := turn.Role
		if role != "model" {
			role = "user"
		}
		req.Contents = append(req.Contents, content{
			Role:  role,
			Parts: []part{{Text: turn.Text}},
		})
	}

	var parts []part
	if p.Image != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: p.Image.MIME,
			Data:     base64Encode(p.Image.Data),
		}})
	}
	if p.Text != "" {
		parts = append(parts, part{Text: p.Text})
	}
	req.Contents = append(req.Contents, content{Role: "user", Parts: parts})

	gc := &generationConfig{Temperature: p.Temperature}
	if p.ThinkingBudget > 0 {
		gc.ThinkingConfig = &thinkingConfig{ThinkingBudget: p.ThinkingBudget}
	}
	if p.ResponseSchema != nil {
		gc.ResponseMimeType = "application/json"
		gc.ResponseJsonSchema = p.ResponseSchema
	}
	if p.WantImage {
		gc.ResponseModalities = []string{"IMAGE"}
		ic := &imageConfig{AspectRatio: p.AspectRatio, ImageSize: p.Resolution}
		if ic.AspectRatio != "" || ic.ImageSize != "" {
			gc.ImageConfig = ic
		}
	}
	req.GenerationConfig = gc
	return req
}

// extractReply scans the first candidate: text parts are concatenated,
// the first inline image (if any) is decoded.
func extractReply(resp *generateResponse) (*Reply, error) {
	if len(resp.Candidates) == 0 {
		return nil, newError(KindMalformedResponse, "no candidates returned")
	}
	var (
		text  strings.Builder
		image *DataURI
	)
	for _, pt := range resp.Candidates[0].Content.Parts {
		if pt.Text != "" {
			text.WriteString(pt.Text)
		}
		if image == nil && pt.InlineData != nil && pt.InlineData.Data != "" {
			data, err := base64Decode(pt.InlineData.Data)
			if err != nil {
				return nil, wrapError(KindMalformedResponse, "decode inline image", err)
			}
			mime := pt.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			image = &DataURI{MIME: mime, Data: data}
		}
	}
	if text.Len() == 0 && image == nil {
		return nil, newError(KindMalformedResponse, "no usable content part in reply")
	}
	return &Reply{Text: text.String(), Image: image}, nil
}

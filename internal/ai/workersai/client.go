package workersai

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/logger"
	"github.com/spigell/shift-swap/internal/utils"
)

const (
	apiURL       = "https://api.cloudflare.com/client/v4"
	DefaultModel = "@cf/meta/llama-3.3-70b-instruct-fp8-fast"
	userAgent    = "spigell/shift-swap"
	contentType  = "application/json"
)

// Client is an ai.Reasoner backed by the Cloudflare Workers AI REST API.
type Client struct {
	accountID  string
	token      string
	model      string
	logger     *zap.Logger
	maxLogLen  int
	HTTPClient *http.Client
	APIURL     string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type runRequest struct {
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type runResponse struct {
	Result struct {
		Response json.RawMessage `json:"response"`
	} `json:"result"`
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
}

func New(accountID, token, model string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	accountID = strings.TrimSpace(accountID)
	token = strings.TrimSpace(token)
	if accountID == "" {
		return nil, errors.New("workers ai account id is required")
	}
	if token == "" {
		return nil, errors.New("workers ai api token is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		accountID:  accountID,
		token:      token,
		model:      model,
		logger:     logger.WithCommonFields(log, "workersai", model),
		HTTPClient: &http.Client{Timeout: timeout},
		APIURL:     apiURL,
	}, nil
}

func (c *Client) SetMaxLogLength(n int) {
	c.maxLogLen = n
}

func (c *Client) Model() string {
	return c.model
}

// Complete runs the chat model with the given turns.
func (c *Client) Complete(ctx context.Context, turns []ai.Turn, opts ai.Options) (string, error) {
	body := runRequest{
		Messages:    make([]message, 0, len(turns)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, turn := range turns {
		body.Messages = append(body.Messages, message{Role: string(turn.Role), Content: turn.Text})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", strings.TrimRight(c.APIURL, "/"), c.accountID, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req = c.setHeaders(req)

	c.logger.Debug("workers ai request",
		zap.Int("turns", len(turns)),
		zap.Int("max_tokens", opts.MaxTokens),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("workers ai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("read workers ai response: %w", err)
	}

	var parsed runResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("bad status: %s", resp.Status)
		}
		return "", fmt.Errorf("decode workers ai response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !parsed.Success {
		if len(parsed.Errors) > 0 {
			return "", fmt.Errorf("bad status: %s: %s (code %d)", resp.Status, parsed.Errors[0].Message, parsed.Errors[0].Code)
		}
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	text := responseText(parsed.Result.Response)
	if text == "" {
		return "", errors.New("workers ai returned empty response")
	}

	c.logger.Debug("workers ai response",
		zap.String("response_preview", utils.TruncateForLog(text, c.logLen())),
	)

	return text, nil
}

func (c *Client) logLen() int {
	if c.maxLogLen <= 0 {
		return 200
	}
	return c.maxLogLen
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept-Encoding", "gzip")

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

// responseText handles both the plain string response and the case where
// the model already returned a JSON value that the API decoded for us.
func responseText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

package gemini

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-pro"
)

// Config for the Gemini client. APIKey is required.
type Config struct {
	APIKey      string
	BaseURL     string        // default DefaultBaseURL
	Model       string        // default DefaultModel
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
	// DisableJSONMode stops requesting an application/json response. The
	// normalizer strips fences either way.
	DisableJSONMode bool
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) Name() string  { return "gemini" }
func (c *Client) Model() string { return c.cfg.Model }

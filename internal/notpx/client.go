// Package notpx is a client for the canvas game's HTTP API. Every call
// authenticates with the account's raw init data and is paced through a
// shared rate limiter.
package notpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wbrown/pixelbot"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://notpx.app/api/v1"

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the API on behalf of one account.
type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithLimiter paces every request through l. Share one limiter between
// clients to bound the bot's total request rate.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithProxy routes requests through an http proxy.
func WithProxy(u *url.URL) Option {
	return func(c *Client) {
		if u != nil {
			c.rc.SetProxy(u.String())
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.rc.SetTimeout(d)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.rc.SetHeader("User-Agent", ua)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		rc: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json, text/plain, */*").
			SetHeader("Origin", "https://app.notpx.app").
			SetHeader("Referer", "https://app.notpx.app/"),
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, credential, method, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req := c.rc.R().
		SetContext(ctx).
		SetHeader("Authorization", "initData "+credential)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, pixelbot.ErrUnauthorized)
	}
	if resp.IsError() {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("%s %s: error decoding response: %w", method, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// User is the subset of /users/me the bot reads.
type User struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	Balance   float64 `json:"balance"`
	Repaints  int     `json:"repaints"`
}

// Me fetches the account's user record. It doubles as a login check.
func (c *Client) Me(ctx context.Context, credential string) (*User, error) {
	var u User
	if err := c.do(ctx, credential, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// MiningStatus is the account's balance, paint charges and finished
// tasks.
type MiningStatus struct {
	UserBalance float64         `json:"userBalance"`
	Charges     int             `json:"charges"`
	MaxCharges  int             `json:"maxCharges"`
	Tasks       map[string]bool `json:"tasks"`
}

// MiningStatus fetches /mining/status.
func (c *Client) MiningStatus(ctx context.Context, credential string) (*MiningStatus, error) {
	var s MiningStatus
	if err := c.do(ctx, credential, http.MethodGet, "/mining/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Charges returns the number of paints available now.
func (c *Client) Charges(ctx context.Context, credential string) (int, error) {
	s, err := c.MiningStatus(ctx, credential)
	if err != nil {
		return 0, err
	}
	return s.Charges, nil
}

// Claim collects mined rewards and returns the amount claimed.
func (c *Client) Claim(ctx context.Context, credential string) (float64, error) {
	var res struct {
		Claimed float64 `json:"claimed"`
	}
	if err := c.do(ctx, credential, http.MethodGet, "/mining/claim", nil, &res); err != nil {
		return 0, err
	}
	return res.Claimed, nil
}

// CheckTask asks the server to verify and credit a task.
func (c *Client) CheckTask(ctx context.Context, credential, task string) error {
	return c.do(ctx, credential, http.MethodGet, "/mining/task/check/"+url.PathEscape(task), nil, nil)
}

type templateResponse struct {
	ID   json.RawMessage `json:"id"`
	X    int             `json:"x"`
	Y    int             `json:"y"`
	Size int             `json:"size"`
	URL  string          `json:"url"`
}

// Template fetches the template the account is subscribed to.
func (c *Client) Template(ctx context.Context, credential string) (pixelbot.Template, error) {
	var res templateResponse
	if err := c.do(ctx, credential, http.MethodGet, "/tournament/template/subscribe/my", nil, &res); err != nil {
		return pixelbot.Template{}, err
	}
	if res.URL == "" {
		return pixelbot.Template{}, fmt.Errorf("%w: template has no image url", pixelbot.ErrInvalidTemplate)
	}
	t := pixelbot.Template{
		// ids come back as numbers or strings depending on the endpoint
		ID:   strings.Trim(string(res.ID), `"`),
		X:    res.X,
		Y:    res.Y,
		Size: res.Size,
		URL:  res.URL,
	}
	return t, t.Validate()
}

// DownloadTemplate fetches the template image and stores it at path.
// The image host is not the API, so no credential is sent.
func (c *Client) DownloadTemplate(ctx context.Context, imageURL, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.rc.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("error downloading template: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Method: http.MethodGet, Path: imageURL, Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	data := resp.Body()
	if len(data) == 0 {
		return nil, errors.New("template image is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("error saving template image: %w", err)
	}
	return data, nil
}

type repaintRequest struct {
	PixelID  int    `json:"pixelId"`
	NewColor string `json:"newColor"`
}

// Repaint paints one cell and returns the account's new balance.
func (c *Client) Repaint(ctx context.Context, credential string, item pixelbot.WorkItem) (float64, error) {
	var res struct {
		Balance float64 `json:"balance"`
	}
	body := repaintRequest{PixelID: item.CellID, NewColor: item.Color.Hex()}
	if err := c.do(ctx, credential, http.MethodPost, "/repaint/start", body, &res); err != nil {
		return 0, err
	}
	return res.Balance, nil
}

var _ pixelbot.PaintClient = (*Client)(nil)

// Package api talks to the questionnaire backend over HTTP.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanderheijden86/qb/pkg/model"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, msg)
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	PublicBaseURL string // Prefix for links sent to respondents; defaults to BaseURL
	Token         string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client is a questionnaire backend client.
type Client struct {
	base   string
	public string
	token  string
	http   *http.Client
	log    *zap.Logger
}

// New creates a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base url is empty")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", base, err)
	}
	public := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if public == "" {
		public = base
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{base: base, public: public, token: opts.Token, http: hc, log: logger}, nil
}

// ListQuestionnaires returns the questionnaires owned by userID.
func (c *Client) ListQuestionnaires(ctx context.Context, userID string) ([]model.QuestionnaireSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("list questionnaires: user id is empty")
	}
	var out []model.QuestionnaireSummary
	if err := c.do(ctx, http.MethodGet, "/api/questionnaire/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	if out == nil {
		out = []model.QuestionnaireSummary{}
	}
	return out, nil
}

// GetTemplate fetches a full questionnaire template.
func (c *Client) GetTemplate(ctx context.Context, templateID string) (model.Questionnaire, error) {
	if strings.TrimSpace(templateID) == "" {
		return model.Questionnaire{}, fmt.Errorf("get template: template id is empty")
	}
	var out model.Questionnaire
	if err := c.do(ctx, http.MethodGet, "/api/template/"+url.PathEscape(templateID), nil, &out); err != nil {
		return model.Questionnaire{}, fmt.Errorf("get template %s: %w", templateID, err)
	}
	return out, nil
}

// CreateTemplate submits q and returns the stored questionnaire, including
// the id assigned by the backend. An invalid q is rejected before any request
// is made.
func (c *Client) CreateTemplate(ctx context.Context, q model.Questionnaire) (model.Questionnaire, error) {
	if err := q.Validate(); err != nil {
		return model.Questionnaire{}, fmt.Errorf("create template: %w", err)
	}
	var out model.Questionnaire
	if err := c.do(ctx, http.MethodPost, "/api/template", q, &out); err != nil {
		return model.Questionnaire{}, fmt.Errorf("create template: %w", err)
	}
	if out.ID == "" {
		return model.Questionnaire{}, fmt.Errorf("create template: response has no id")
	}
	return out, nil
}

// QuestionnaireURL returns the public link for a questionnaire.
func (c *Client) QuestionnaireURL(id string) string {
	return c.public + "/questionnaire/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package notify sends the "questionnaire created" email through an
// EmailJS-compatible endpoint.
//
// Notification is best effort. Send failures and missing configuration are
// logged and reported as false; they never abort the caller's workflow.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Placeholders substituted for blank names.
const (
	DefaultTemplateName   = "Untitled questionnaire"
	DefaultRespondentName = "Participant"
)

// DefaultEndpoint is the EmailJS REST send endpoint.
const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// Config holds the email service credentials.
type Config struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	Endpoint   string
}

// IsEmailConfigured reports whether service, template and public key are all
// set.
func (c Config) IsEmailConfigured() bool {
	return strings.TrimSpace(c.ServiceID) != "" &&
		strings.TrimSpace(c.TemplateID) != "" &&
		strings.TrimSpace(c.PublicKey) != ""
}

// Params are the values rendered into the email.
type Params struct {
	ToEmail          string
	QuestionnaireURL string
	TemplateName     string
	RespondentName   string
}

// withDefaults returns p with blank names replaced by placeholders.
func (p Params) withDefaults() Params {
	if strings.TrimSpace(p.TemplateName) == "" {
		p.TemplateName = DefaultTemplateName
	}
	if strings.TrimSpace(p.RespondentName) == "" {
		p.RespondentName = DefaultRespondentName
	}
	return p
}

// Notifier sends questionnaire notifications.
type Notifier struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) { n.log = l }
}

// New creates a Notifier. The config may be incomplete; sends then become
// logged no-ops.
func New(cfg Config, opts ...Option) *Notifier {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	n := &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Config returns the notifier configuration.
func (n *Notifier) Config() Config {
	return n.cfg
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendQuestionnaireCreatedEmail emails p.ToEmail a link to the questionnaire.
// It returns true only when the service accepted the message.
func (n *Notifier) SendQuestionnaireCreatedEmail(ctx context.Context, p Params) bool {
	if !n.cfg.IsEmailConfigured() {
		n.log.Warn("email is not configured",
			zap.Bool("service_id", strings.TrimSpace(n.cfg.ServiceID) != ""),
			zap.Bool("template_id", strings.TrimSpace(n.cfg.TemplateID) != ""),
			zap.Bool("public_key", strings.TrimSpace(n.cfg.PublicKey) != ""))
		return false
	}
	if strings.TrimSpace(p.ToEmail) == "" {
		n.log.Warn("email not sent", zap.String("reason", "no recipient"))
		return false
	}

	p = p.withDefaults()
	if err := n.send(ctx, p); err != nil {
		n.log.Warn("email not sent", zap.String("to", p.ToEmail), zap.Error(err))
		return false
	}
	n.log.Info("questionnaire email sent",
		zap.String("to", p.ToEmail),
		zap.String("template", p.TemplateName))
	return true
}

func (n *Notifier) send(ctx context.Context, p Params) error {
	body, err := json.Marshal(sendRequest{
		ServiceID:  n.cfg.ServiceID,
		TemplateID: n.cfg.TemplateID,
		UserID:     n.cfg.PublicKey,
		TemplateParams: map[string]string{
			"to_email":          p.ToEmail,
			"questionnaire_url": p.QuestionnaireURL,
			"template_name":     p.TemplateName,
			"respondent_name":   p.RespondentName,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("email service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

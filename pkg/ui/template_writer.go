package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/qb/pkg/model"
	"github.com/vanderheijden86/qb/pkg/notify"
	"github.com/vanderheijden86/qb/pkg/tree"
)

// SaveResultMsg is returned after a save attempt completes
type SaveResultMsg struct {
	Template model.Questionnaire
	URL      string // public link to the created questionnaire
	Err      error
}

// NotifyResultMsg is returned after a notification attempt
type NotifyResultMsg struct {
	To   string
	Sent bool
}

// TemplateLoadedMsg carries a template fetched as a starting point
type TemplateLoadedMsg struct {
	Template model.Questionnaire
	Err      error
}

// TemplatesListedMsg carries the current user's questionnaires
type TemplatesListedMsg struct {
	Templates []model.QuestionnaireSummary
	Err       error
}

// Backend is the part of the API client the editor uses.
type Backend interface {
	ListQuestionnaires(ctx context.Context, userID string) ([]model.QuestionnaireSummary, error)
	GetTemplate(ctx context.Context, templateID string) (model.Questionnaire, error)
	QuestionnaireURL(id string) string
}

// Notifier sends the questionnaire-created email.
type Notifier interface {
	SendQuestionnaireCreatedEmail(ctx context.Context, p notify.Params) bool
}

// TemplateWriter runs backend and notification calls as tea.Cmds so the
// editor loop never blocks on the network.
type TemplateWriter struct {
	session  *tree.Session
	backend  Backend
	notifier Notifier
	timeout  time.Duration
}

// NewTemplateWriter creates a writer for session. backend and notifier may be
// nil; the corresponding commands then report an error.
func NewTemplateWriter(session *tree.Session, backend Backend, notifier Notifier) *TemplateWriter {
	return &TemplateWriter{
		session:  session,
		backend:  backend,
		notifier: notifier,
		timeout:  30 * time.Second,
	}
}

// IsAvailable returns whether a backend is configured
func (w *TemplateWriter) IsAvailable() bool {
	return w.backend != nil
}

// SetNotifier swaps the notifier, e.g. after a config reload.
func (w *TemplateWriter) SetNotifier(n Notifier) {
	w.notifier = n
}

// Save validates and submits the session snapshot.
func (w *TemplateWriter) Save() tea.Cmd {
	session, backend, timeout := w.session, w.backend, w.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		created, err := session.Save(ctx)
		if err != nil {
			return SaveResultMsg{Err: err}
		}
		msg := SaveResultMsg{Template: created}
		if backend != nil {
			msg.URL = backend.QuestionnaireURL(created.ID)
		}
		return msg
	}
}

// Notify emails a respondent the link to a created questionnaire.
func (w *TemplateWriter) Notify(p notify.Params) tea.Cmd {
	n, timeout := w.notifier, w.timeout
	return func() tea.Msg {
		if n == nil {
			return NotifyResultMsg{To: p.ToEmail, Sent: false}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return NotifyResultMsg{To: p.ToEmail, Sent: n.SendQuestionnaireCreatedEmail(ctx, p)}
	}
}

// Load fetches a template to start editing from.
func (w *TemplateWriter) Load(templateID string) tea.Cmd {
	if !w.IsAvailable() {
		return w.unavailableCmd(func(err error) tea.Msg { return TemplateLoadedMsg{Err: err} })
	}
	backend, timeout := w.backend, w.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		q, err := backend.GetTemplate(ctx, templateID)
		return TemplateLoadedMsg{Template: q, Err: err}
	}
}

// List fetches the questionnaires owned by userID.
func (w *TemplateWriter) List(userID string) tea.Cmd {
	if !w.IsAvailable() {
		return w.unavailableCmd(func(err error) tea.Msg { return TemplatesListedMsg{Err: err} })
	}
	backend, timeout := w.backend, w.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		list, err := backend.ListQuestionnaires(ctx, userID)
		return TemplatesListedMsg{Templates: list, Err: err}
	}
}

// unavailableCmd returns a command that immediately reports the backend is missing
func (w *TemplateWriter) unavailableCmd(wrap func(error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return wrap(fmt.Errorf("questionnaire backend is not configured; set api.base_url"))
	}
}

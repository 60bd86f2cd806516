package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vanderheijden86/qb/pkg/config"
	"github.com/vanderheijden86/qb/pkg/model"
	"github.com/vanderheijden86/qb/pkg/notify"
	"github.com/vanderheijden86/qb/pkg/tree"
)

// inputMode says what the text input is editing.
type inputMode int

const (
	inputName inputMode = iota
	inputTitle
	inputDescription
	inputOptions
)

// EditorOptions configures NewEditorModel.
type EditorOptions struct {
	Session *tree.Session
	Writer  *TemplateWriter
	// Worker delivers config reloads; nil disables live reload.
	Worker *BackgroundWorker
	Config config.Config
	// UserID is the signed-in user, used to list templates.
	UserID string
	// TemplateID, when set, is loaded as the starting document.
	TemplateID string
	Logger     *zap.Logger
	Renderer   *lipgloss.Renderer
	// Clipboard overrides the system clipboard, mainly for tests.
	Clipboard func(string) error
}

// EditorModel is the Bubble Tea model for the questionnaire editor.
type EditorModel struct {
	session *tree.Session
	writer  *TemplateWriter
	worker  *BackgroundWorker
	log     *zap.Logger

	theme    Theme
	tree     TreeModel
	markdown *MarkdownRenderer
	preview  viewport.Model

	context     Context
	helpReturn  Context
	input       textinput.Model
	mode        inputMode
	notifyInput textinput.Model
	answer      AnswerTypePickerModel
	templates   TemplatePickerModel

	expandNew  bool
	userID     string
	templateID string
	emailReady bool

	// last created questionnaire
	lastURL   string
	lastTitle string

	saving    bool
	status    string
	statusErr bool

	width  int
	height int
	ready  bool

	copyToClipboard func(string) error
}

// NewEditorModel creates the editor over opts.Session.
func NewEditorModel(opts EditorOptions) EditorModel {
	if opts.Session == nil {
		opts.Session = tree.NewSession(nil)
	}
	if opts.Writer == nil {
		opts.Writer = NewTemplateWriter(opts.Session, nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.DefaultRenderer()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	theme := DefaultTheme(opts.Renderer)

	input := textinput.New()
	input.CharLimit = 200
	input.Prompt = "› "

	notifyInput := textinput.New()
	notifyInput.Placeholder = "respondent@example.com"
	notifyInput.CharLimit = 254
	notifyInput.Prompt = "To: "

	m := EditorModel{
		session:         opts.Session,
		writer:          opts.Writer,
		worker:          opts.Worker,
		log:             opts.Logger,
		theme:           theme,
		tree:            NewTreeModel(theme),
		markdown:        NewMarkdownRendererWithTheme(80, theme),
		preview:         viewport.New(80, 20),
		context:         ContextTree,
		input:           input,
		notifyInput:     notifyInput,
		expandNew:       opts.Config.UI.ExpandNew,
		userID:          opts.UserID,
		templateID:      opts.TemplateID,
		emailReady:      NotifyConfig(opts.Config).IsEmailConfigured(),
		copyToClipboard: opts.Clipboard,
	}
	m.sync()
	return m
}

// Init starts the config watcher loop and loads the starting template.
func (m EditorModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.worker != nil {
		cmds = append(cmds, m.worker.WaitForReload())
	}
	if m.templateID != "" {
		cmds = append(cmds, m.writer.Load(m.templateID))
	}
	return tea.Batch(cmds...)
}

// NotifyConfig extracts the email settings from cfg.
func NotifyConfig(cfg config.Config) notify.Config {
	return notify.Config{
		ServiceID:  cfg.Email.ServiceID,
		TemplateID: cfg.Email.TemplateID,
		PublicKey:  cfg.Email.PublicKey,
		Endpoint:   cfg.Email.Endpoint,
	}
}

// sync rebuilds the tree rows from the session snapshot.
func (m *EditorModel) sync() {
	m.tree.Sync(m.session.Document(), m.session.Expanded())
}

func (m *EditorModel) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *EditorModel) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// Update handles messages.
func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		bodyHeight := max(msg.Height-2, 1) // header + status bar
		m.tree.SetSize(msg.Width, bodyHeight)
		m.preview.Width = msg.Width
		m.preview.Height = bodyHeight
		m.markdown.SetWidth(max(msg.Width-4, 20))
		m.answer.SetSize(msg.Width, msg.Height)
		m.templates.SetSize(msg.Width, msg.Height)
		return m, nil

	case SaveResultMsg:
		return m.handleSaveResult(msg), nil

	case NotifyResultMsg:
		if msg.Sent {
			m.setStatus("Email sent to %s", msg.To)
		} else {
			m.setError(fmt.Errorf("email to %s was not sent", msg.To))
		}
		return m, nil

	case TemplateLoadedMsg:
		if msg.Err != nil {
			m.log.Warn("template load failed", zap.Error(msg.Err))
			m.setError(fmt.Errorf("load template: %w", msg.Err))
			return m, nil
		}
		m.session.Load(tree.FromQuestionnaire(msg.Template))
		m.tree.JumpToTop()
		m.sync()
		m.setStatus("Loaded %q", msg.Template.Title)
		return m, nil

	case TemplatesListedMsg:
		if msg.Err != nil {
			m.setError(fmt.Errorf("list questionnaires: %w", msg.Err))
			return m, nil
		}
		m.templates = NewTemplatePicker(msg.Templates, m.theme)
		m.templates.SetSize(m.width, m.height)
		m.context = ContextTemplatePicker
		return m, nil

	case PickTemplateMsg:
		m.context = ContextTree
		m.setStatus("Loading template...")
		return m, m.writer.Load(msg.ID)

	case PickerClosedMsg:
		m.context = ContextTree
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		var cmd tea.Cmd
		if m.worker != nil {
			cmd = m.worker.WaitForReload()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *EditorModel) applyConfig(cfg config.Config) {
	nc := NotifyConfig(cfg)
	m.writer.SetNotifier(notify.New(nc, notify.WithLogger(m.log)))
	m.emailReady = nc.IsEmailConfigured()
	m.expandNew = cfg.UI.ExpandNew
	m.log.Info("configuration reloaded", zap.Bool("email_configured", m.emailReady))
	m.setStatus("Configuration reloaded")
}

func (m EditorModel) handleSaveResult(msg SaveResultMsg) EditorModel {
	m.saving = false
	if msg.Err != nil {
		var verr *tree.ValidationError
		switch {
		case errors.As(msg.Err, &verr):
			m.setError(verr)
		default:
			m.setError(msg.Err)
		}
		return m
	}
	m.lastURL = msg.URL
	m.lastTitle = msg.Template.Title
	if msg.URL != "" {
		m.setStatus("Saved: %s", msg.URL)
	} else {
		m.setStatus("Saved %q", msg.Template.Title)
	}
	return m
}

func (m EditorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.context {
	case ContextRename:
		return m.handleInputKey(msg)
	case ContextAnswerPicker:
		return m.handleAnswerKey(msg)
	case ContextTemplatePicker:
		var cmd tea.Cmd
		m.templates, cmd = m.templates.Update(msg)
		return m, cmd
	case ContextPreview:
		return m.handlePreviewKey(msg)
	case ContextNotify:
		return m.handleNotifyKey(msg)
	case ContextHelp:
		switch msg.String() {
		case "esc", "?", "q":
			m.context = m.helpReturn
		}
		return m, nil
	}
	return m.handleTreeKey(msg)
}

func (m EditorModel) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	path, hasSelection := m.tree.SelectedPath()
	node, _ := m.tree.SelectedNode()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.helpReturn = m.context
		m.context = ContextHelp
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case "ctrl+d", "pgdown":
		m.tree.PageDown()
	case "ctrl+u", "pgup":
		m.tree.PageUp()

	case "h", "left":
		if hasSelection && m.session.IsExpanded(path) {
			_ = m.session.ToggleExpanded(path)
			m.sync()
		} else {
			m.tree.JumpToParent()
		}
	case "l", "right":
		if !hasSelection || len(node.Children) == 0 {
			break
		}
		if !m.session.IsExpanded(path) {
			_ = m.session.Expand(path)
			m.sync()
		}
		m.tree.MoveToFirstChild()
	case "enter", " ":
		if hasSelection {
			if err := m.session.ToggleExpanded(path); err != nil {
				m.setError(err)
			}
			m.sync()
		}

	case "c":
		id := m.session.AddCategory()
		m.sync()
		m.tree.SelectByID(id)
		m.setStatus("Added category")
	case "a":
		if !hasSelection {
			m.setStatus("Select a node first, or press c to add a category")
			break
		}
		id, err := m.session.AddChild(path)
		if err != nil {
			m.setError(fmt.Errorf("%s cannot have children", kindLabel(node.Kind)))
			break
		}
		if m.expandNew {
			_ = m.session.Expand(path)
		}
		m.sync()
		if !m.tree.SelectByID(id) {
			m.tree.SelectByID(node.ID)
		}
		m.setStatus("Added %s", strings.ToLower(kindLabel(node.Kind.Child())))
	case "d", "delete":
		if !hasSelection {
			break
		}
		if err := m.session.Delete(path); err != nil {
			m.setError(err)
			break
		}
		m.sync()
		m.setStatus("Deleted %s %s", strings.ToLower(kindLabel(node.Kind)), displayName(node))

	case "r":
		if !hasSelection {
			break
		}
		if err := m.session.BeginEdit(path); err != nil {
			m.setError(err)
			break
		}
		return m.openInput(inputName, node.Name, "Rename "+strings.ToLower(kindLabel(node.Kind)))
	case "T":
		return m.openInput(inputTitle, m.session.Document().Title(), "Questionnaire title")
	case "D":
		return m.openInput(inputDescription, m.session.Document().Description(), "Questionnaire description")
	case "t":
		if !hasSelection || node.Kind != tree.KindQuestion {
			m.setStatus("Answer types apply to questions")
			break
		}
		m.answer = NewAnswerTypePickerModel(node.AnswerType, m.theme)
		m.answer.SetSize(m.width, m.height)
		m.context = ContextAnswerPicker
	case "O":
		if !hasSelection || node.AnswerType != model.AnswerMultipleChoice {
			m.setStatus("Options apply to multiple-choice questions")
			break
		}
		return m.openInput(inputOptions, strings.Join(node.Options, ", "), "Options (comma separated)")

	case "s":
		if m.saving || m.session.Busy() {
			m.setError(tree.ErrSaveInProgress)
			break
		}
		m.saving = true
		m.setStatus("Saving...")
		return m, m.writer.Save()
	case "p":
		m.showPreview()
	case "o":
		if m.userID == "" {
			m.setStatus("Not signed in; run qb login first")
			break
		}
		m.setStatus("Fetching questionnaires...")
		return m, m.writer.List(m.userID)
	case "y":
		if m.lastURL == "" {
			m.setStatus("Nothing to copy yet; save first")
			break
		}
		if err := m.copyToClipboard(m.lastURL); err != nil {
			m.setError(fmt.Errorf("clipboard: %w", err))
			break
		}
		m.setStatus("Copied %s", m.lastURL)
	case "n":
		if m.lastURL == "" {
			m.setStatus("Save the questionnaire before sending it")
			break
		}
		if !m.emailReady {
			m.setError(errors.New("email is not configured"))
			break
		}
		m.notifyInput.SetValue("")
		m.notifyInput.Focus()
		m.context = ContextNotify
		return m, textinput.Blink
	}
	return m, nil
}

func (m EditorModel) openInput(mode inputMode, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.context = ContextRename
	return m, textinput.Blink
}

func (m EditorModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == inputName {
			m.session.CancelEdit()
		}
		m.input.Blur()
		m.context = ContextTree
		return m, nil
	case "enter":
		if err := m.commitInput(); err != nil {
			// stay in the input so the text can be corrected
			m.setError(err)
			return m, nil
		}
		m.input.Blur()
		m.context = ContextTree
		m.sync()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *EditorModel) commitInput() error {
	value := m.input.Value()
	switch m.mode {
	case inputTitle:
		m.session.SetTitle(strings.TrimSpace(value))
		m.setStatus("Title updated")
	case inputDescription:
		m.session.SetDescription(strings.TrimSpace(value))
		m.setStatus("Description updated")
	case inputOptions:
		path, ok := m.tree.SelectedPath()
		if !ok {
			return tree.ErrPathNotFound
		}
		if err := m.session.SetOptions(path, splitOptions(value)); err != nil {
			return err
		}
		m.setStatus("Options updated")
	default:
		if err := m.session.CommitEdit(value); err != nil {
			return err
		}
		m.setStatus("Renamed")
	}
	return nil
}

func splitOptions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (m EditorModel) handleAnswerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.answer.MoveDown()
	case "k", "up":
		m.answer.MoveUp()
	case "esc", "q":
		m.context = ContextTree
	case "enter":
		m.context = ContextTree
		path, ok := m.tree.SelectedPath()
		if !ok {
			break
		}
		at := m.answer.Selected()
		if err := m.session.SetAnswerType(path, at); err != nil {
			m.setError(err)
			break
		}
		m.sync()
		m.setStatus("Answer type: %s", at.Label())
	}
	return m, nil
}

func (m *EditorModel) showPreview() {
	out, err := m.markdown.RenderQuestionnaire(m.session.Snapshot())
	if err != nil {
		m.setError(fmt.Errorf("render preview: %w", err))
		return
	}
	m.preview.SetContent(out)
	m.preview.GotoTop()
	m.context = ContextPreview
}

func (m EditorModel) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "p", "q":
		m.context = ContextTree
		return m, nil
	}
	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m EditorModel) handleNotifyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.notifyInput.Blur()
		m.context = ContextTree
		return m, nil
	case "enter":
		to := strings.TrimSpace(m.notifyInput.Value())
		if to == "" {
			m.setStatus("Enter a recipient address")
			return m, nil
		}
		m.notifyInput.Blur()
		m.context = ContextTree
		m.setStatus("Sending to %s...", to)
		return m, m.writer.Notify(notify.Params{
			ToEmail:          to,
			QuestionnaireURL: m.lastURL,
			TemplateName:     m.lastTitle,
		})
	}
	var cmd tea.Cmd
	m.notifyInput, cmd = m.notifyInput.Update(msg)
	return m, cmd
}

// View renders the editor.
func (m EditorModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.context {
	case ContextAnswerPicker:
		return m.answer.View()
	case ContextTemplatePicker:
		return m.templates.View()
	case ContextHelp:
		return RenderContextHelp(m.helpReturn, m.theme, m.width, m.height)
	}

	var body string
	if m.context == ContextPreview {
		body = m.preview.View()
	} else {
		body = m.tree.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m *EditorModel) renderHeader() string {
	doc := m.session.Document()
	title := strings.TrimSpace(doc.Title())
	if title == "" {
		title = notify.DefaultTemplateName
	}
	q := m.session.Snapshot()
	counts := fmt.Sprintf(" %d categories · %d questions ", len(q.Categories), q.QuestionCount())

	left := m.theme.Header.Render(" qb ") + " " + m.theme.PrimaryBold.Render(truncate(title, max(m.width-30, 10)))
	right := m.theme.MutedText.Render(counts)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m *EditorModel) renderFooter() string {
	t := m.theme

	switch m.context {
	case ContextRename:
		return t.KeyText.Render(m.input.Placeholder+": ") + m.input.View()
	case ContextNotify:
		return m.notifyInput.View()
	}

	var parts []string
	if m.saving {
		parts = append(parts, t.Renderer.NewStyle().Foreground(t.Warning).Bold(true).Render("● saving"))
	}
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, t.ErrorText.Render(m.status))
		} else {
			parts = append(parts, t.SuccessText.Render(m.status))
		}
	}

	keys := "j/k: nav • enter: expand • c/a: add • r: rename • d: delete • s: save • ?: help • q: quit"
	if m.context == ContextPreview {
		keys = "j/k: scroll • esc: back"
	}
	left := strings.Join(parts, "  ")
	hint := t.MutedText.Render(keys)
	if lipgloss.Width(left)+lipgloss.Width(hint)+2 > m.width {
		return left
	}
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(hint), 1)
	return left + strings.Repeat(" ", gap) + hint
}

// Context returns the focused part of the editor.
func (m EditorModel) Context() Context {
	return m.context
}

// Status returns the status bar message and whether it reports an error.
func (m EditorModel) Status() (string, bool) {
	return m.status, m.statusErr
}

// Saving reports whether a save is outstanding.
func (m EditorModel) Saving() bool {
	return m.saving
}

// Tree exposes the tree view state.
func (m EditorModel) Tree() *TreeModel {
	return &m.tree
}

package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qb/pkg/config"
	"github.com/vanderheijden86/qb/pkg/model"
	"github.com/vanderheijden86/qb/pkg/tree"
)

type editorFixture struct {
	session  *tree.Session
	backend  *fakeBackend
	notifier *fakeNotifier
	copied   []string
}

func newTestEditor(t *testing.T, q model.Questionnaire, mutate func(*EditorOptions)) (EditorModel, *editorFixture) {
	t.Helper()
	fx := &editorFixture{
		backend:  &fakeBackend{templates: map[string]model.Questionnaire{}},
		notifier: &fakeNotifier{sent: true},
	}
	fx.session = tree.NewSession(tree.FromQuestionnaire(q), tree.WithSaver(fx.backend))
	opts := EditorOptions{
		Session:  fx.session,
		Writer:   NewTemplateWriter(fx.session, fx.backend, fx.notifier),
		Renderer: lipgloss.NewRenderer(nil),
		Clipboard: func(s string) error {
			fx.copied = append(fx.copied, s)
			return nil
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	m := NewEditorModel(opts)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(EditorModel), fx
}

// press feeds keys to the editor and returns the model and the last command.
func press(m EditorModel, keys ...string) (EditorModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(key(k))
		m = updated.(EditorModel)
	}
	return m, cmd
}

func typeText(m EditorModel, s string) EditorModel {
	for _, r := range s {
		m, _ = press(m, string(r))
	}
	return m
}

func clearInput(m EditorModel) EditorModel {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	return updated.(EditorModel)
}

// runCmd executes cmd and feeds its message back into the editor.
func runCmd(t *testing.T, m EditorModel, cmd tea.Cmd) (EditorModel, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, next := m.Update(cmd())
	return updated.(EditorModel), next
}

func editorQuestionnaire() model.Questionnaire {
	return model.Questionnaire{
		Title: "Survey",
		Categories: []model.Category{
			{Name: "Work", SubCategories: []model.SubCategory{
				{Name: "Team", Topics: []model.Topic{
					{Name: "Communication", Questions: []model.Question{
						{Text: "Do you feel heard?", AnswerType: model.AnswerText},
					}},
				}},
			}},
			{Name: "Life"},
		},
	}
}

func TestEditor_InitializingView(t *testing.T) {
	m := NewEditorModel(EditorOptions{Renderer: lipgloss.NewRenderer(nil)})
	if m.View() != "Initializing..." {
		t.Errorf("expected placeholder before first resize, got %q", m.View())
	}
}

func TestEditor_ToggleExpansion(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)
	if m.Tree().RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", m.Tree().RowCount())
	}

	m, _ = press(m, "enter")
	if !fx.session.IsExpanded(tree.Path{0}) {
		t.Error("enter should expand the selected category")
	}
	if m.Tree().RowCount() != 3 {
		t.Errorf("expected 3 rows after expanding, got %d", m.Tree().RowCount())
	}

	m, _ = press(m, " ")
	if fx.session.IsExpanded(tree.Path{0}) {
		t.Error("space should collapse it again")
	}
}

func TestEditor_RightLeftNavigation(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "l")
	if !fx.session.IsExpanded(tree.Path{0}) || m.Tree().SelectedKey() != "subcategory-0-0" {
		t.Errorf("l should expand and descend, at %q", m.Tree().SelectedKey())
	}
	m, _ = press(m, "h")
	if m.Tree().SelectedKey() != "category-0" {
		t.Errorf("h on a collapsed node should jump to parent, at %q", m.Tree().SelectedKey())
	}
	m, _ = press(m, "h")
	if fx.session.IsExpanded(tree.Path{0}) {
		t.Error("h on an expanded node should collapse it")
	}
}

func TestEditor_AddCategory(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "c")
	if got := len(fx.session.Document().Roots()); got != 3 {
		t.Fatalf("expected 3 categories, got %d", got)
	}
	if m.Tree().SelectedKey() != "category-2" {
		t.Errorf("new category should be selected, at %q", m.Tree().SelectedKey())
	}
	if status, isErr := m.Status(); status != "Added category" || isErr {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
}

func TestEditor_AddChildKeepsParentCollapsed(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "j", "a") // Life
	if fx.session.IsExpanded(tree.Path{1}) {
		t.Error("adding a child should not expand the parent")
	}
	if got := len(fx.session.Snapshot().Categories[1].SubCategories); got != 1 {
		t.Errorf("expected 1 subcategory, got %d", got)
	}
	if m.Tree().SelectedKey() != "category-1" {
		t.Errorf("selection should stay on the collapsed parent, at %q", m.Tree().SelectedKey())
	}
	if status, _ := m.Status(); status != "Added subcategory" {
		t.Errorf("status = %q", status)
	}
}

func TestEditor_AddChildExpandNew(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), func(o *EditorOptions) {
		o.Config.UI.ExpandNew = true
	})

	m, _ = press(m, "j", "a")
	if !fx.session.IsExpanded(tree.Path{1}) {
		t.Error("expand_new should expand the parent")
	}
	if m.Tree().SelectedKey() != "subcategory-1-0" {
		t.Errorf("new child should be selected, at %q", m.Tree().SelectedKey())
	}
}

func TestEditor_AddUnderQuestionFails(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), func(o *EditorOptions) {
		o.Config.UI.ExpandNew = true
	})
	m, _ = press(m, "l", "l", "l") // down to the question
	if m.Tree().SelectedKey() != "question-0-0-0-0" {
		t.Fatalf("expected question selected, at %q", m.Tree().SelectedKey())
	}
	m, _ = press(m, "a")
	if status, isErr := m.Status(); !isErr || status != "Question cannot have children" {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
}

func TestEditor_DeletePurgesExpansion(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)
	m, _ = press(m, "enter", "d")

	if got := len(fx.session.Document().Roots()); got != 1 {
		t.Fatalf("expected 1 category left, got %d", got)
	}
	if fx.session.Expanded().Len() != 0 {
		t.Error("expansion of the deleted node should be purged")
	}
	if m.Tree().RowCount() != 1 {
		t.Errorf("expected 1 row, got %d", m.Tree().RowCount())
	}
}

func TestEditor_RenameDuplicateShowsError(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "r")
	if m.Context() != ContextRename {
		t.Fatalf("expected rename context, got %v", m.Context())
	}
	m = clearInput(m)
	m = typeText(m, "Life")
	m, _ = press(m, "enter")

	status, isErr := m.Status()
	if !isErr || status != tree.DuplicateCategoryMessage {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
	if m.Context() != ContextRename {
		t.Error("duplicate rename should keep the input open")
	}
	if _, editing := fx.session.Editing(); !editing {
		t.Error("edit target should be kept after a rejected rename")
	}

	m, _ = press(m, "esc")
	if m.Context() != ContextTree {
		t.Error("esc should close the input")
	}
	if _, editing := fx.session.Editing(); editing {
		t.Error("esc should drop the edit target")
	}
	if fx.session.Snapshot().Categories[0].Name != "Work" {
		t.Error("cancelled rename must not change the name")
	}
}

func TestEditor_RenameCommits(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "r")
	m = clearInput(m)
	m = typeText(m, "Career")
	m, _ = press(m, "enter")

	if m.Context() != ContextTree {
		t.Errorf("expected tree context, got %v", m.Context())
	}
	if got := fx.session.Snapshot().Categories[0].Name; got != "Career" {
		t.Errorf("name = %q, want Career", got)
	}
}

func TestEditor_EditTitle(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "T")
	m = clearInput(m)
	m = typeText(m, "Pulse")
	m, _ = press(m, "enter")

	if got := fx.session.Document().Title(); got != "Pulse" {
		t.Errorf("title = %q", got)
	}
	if !strings.Contains(m.View(), "Pulse") {
		t.Error("header should show the new title")
	}
}

func TestEditor_EditDescription(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "D")
	if m.Context() != ContextRename {
		t.Fatalf("context = %v, want input", m.Context())
	}
	m = typeText(m, "Quarterly check-in ")
	m, _ = press(m, "enter")

	if got := fx.session.Document().Description(); got != "Quarterly check-in" {
		t.Errorf("description = %q", got)
	}
	if status, _ := m.Status(); status != "Description updated" {
		t.Errorf("status = %q", status)
	}

	m, cmd := press(m, "s")
	runCmd(t, m, cmd)
	if len(fx.backend.created) != 1 || fx.backend.created[0].Description != "Quarterly check-in" {
		t.Errorf("saved description not submitted: %+v", fx.backend.created)
	}
}

func TestEditor_SaveUntitled(t *testing.T) {
	q := editorQuestionnaire()
	q.Title = ""
	m, fx := newTestEditor(t, q, nil)

	m, cmd := press(m, "s")
	m, _ = runCmd(t, m, cmd)

	status, isErr := m.Status()
	if isErr || !strings.Contains(status, "Saved: https://forms.example.com/questionnaire/new-1") {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
	if len(fx.backend.created) != 1 || fx.backend.created[0].Title != "" {
		t.Errorf("untitled document should be submitted as is: %+v", fx.backend.created)
	}
}

func TestEditor_AnswerTypePicker(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "t")
	if m.Context() != ContextTree {
		t.Error("answer picker should only open on questions")
	}

	m, _ = press(m, "l", "l", "l", "t")
	if m.Context() != ContextAnswerPicker {
		t.Fatalf("expected answer picker, got %v", m.Context())
	}
	m, _ = press(m, "j", "enter")

	got := fx.session.Snapshot().Categories[0].SubCategories[0].Topics[0].Questions[0].AnswerType
	if got != model.AnswerYesNo {
		t.Errorf("answer type = %q, want yes_no", got)
	}
}

func TestEditor_MultipleChoiceOptions(t *testing.T) {
	q := editorQuestionnaire()
	q.Categories[0].SubCategories[0].Topics[0].Questions[0].AnswerType = model.AnswerMultipleChoice
	m, fx := newTestEditor(t, q, nil)

	m, _ = press(m, "l", "l", "l", "O")
	if m.Context() != ContextRename {
		t.Fatalf("expected options input, got %v", m.Context())
	}
	m = typeText(m, "red, green, ,blue")
	m, _ = press(m, "enter")

	got := fx.session.Snapshot().Categories[0].SubCategories[0].Topics[0].Questions[0].Options
	if strings.Join(got, "|") != "red|green|blue" {
		t.Errorf("options = %v", got)
	}
}

func TestEditor_SaveSingleFlightAndCopy(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)

	m, saveCmd := press(m, "s")
	if saveCmd == nil || !m.Saving() {
		t.Fatal("s should start a save")
	}
	if !strings.Contains(m.View(), "saving") {
		t.Error("status bar should show the save in progress")
	}

	m, again := press(m, "s")
	if again != nil {
		t.Error("second save while busy should not issue a request")
	}
	if status, isErr := m.Status(); !isErr || status != tree.ErrSaveInProgress.Error() {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}

	m, _ = runCmd(t, m, saveCmd)
	if m.Saving() {
		t.Error("saving flag should clear after the result")
	}
	if len(fx.backend.created) != 1 {
		t.Fatalf("expected 1 create request, got %d", len(fx.backend.created))
	}
	status, _ := m.Status()
	if !strings.Contains(status, "https://forms.example.com/questionnaire/new-1") {
		t.Errorf("status = %q", status)
	}

	m, _ = press(m, "y")
	if len(fx.copied) != 1 || fx.copied[0] != "https://forms.example.com/questionnaire/new-1" {
		t.Errorf("clipboard got %v", fx.copied)
	}
}

func TestEditor_SaveRejectsDuplicates(t *testing.T) {
	q := editorQuestionnaire()
	q.Categories[1].Name = "Work"
	m, fx := newTestEditor(t, q, nil)

	m, cmd := press(m, "s")
	m, _ = runCmd(t, m, cmd)

	status, isErr := m.Status()
	if !isErr || status != tree.DuplicateCategoryMessage {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
	if len(fx.backend.created) != 0 {
		t.Error("no request should be issued for an invalid document")
	}
}

func TestEditor_SaveFailureKeepsDocument(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)
	fx.backend.err = errors.New("backend down")

	m, cmd := press(m, "s")
	m, _ = runCmd(t, m, cmd)

	status, isErr := m.Status()
	if !isErr || !strings.Contains(status, "backend down") {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
	if len(fx.session.Snapshot().Categories) != 2 {
		t.Error("document should be unchanged after a failed save")
	}

	fx.backend.err = nil
	m, cmd = press(m, "s")
	m, _ = runCmd(t, m, cmd)
	if _, isErr := m.Status(); isErr {
		t.Error("retry should succeed")
	}
}

func TestEditor_CopyBeforeSave(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), nil)
	m, _ = press(m, "y")
	if len(fx.copied) != 0 {
		t.Error("nothing should be copied before a save")
	}
	if status, _ := m.Status(); !strings.Contains(status, "save first") {
		t.Errorf("status = %q", status)
	}
}

func TestEditor_NotifyFlow(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), func(o *EditorOptions) {
		o.Config.Email = config.EmailConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk"}
	})

	m, _ = press(m, "n")
	if m.Context() != ContextTree {
		t.Fatal("notify should require a saved questionnaire")
	}

	m, cmd := press(m, "s")
	m, _ = runCmd(t, m, cmd)

	m, _ = press(m, "n")
	if m.Context() != ContextNotify {
		t.Fatalf("expected notify context, got %v", m.Context())
	}
	m = typeText(m, "ana@example.com")
	m, cmd = press(m, "enter")
	m, _ = runCmd(t, m, cmd)

	if len(fx.notifier.got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(fx.notifier.got))
	}
	p := fx.notifier.got[0]
	if p.ToEmail != "ana@example.com" || p.QuestionnaireURL != "https://forms.example.com/questionnaire/new-1" || p.TemplateName != "Survey" {
		t.Errorf("unexpected params %+v", p)
	}
	if status, isErr := m.Status(); isErr || status != "Email sent to ana@example.com" {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
}

func TestEditor_NotifyRequiresEmailConfig(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), nil)
	m, cmd := press(m, "s")
	m, _ = runCmd(t, m, cmd)

	m, _ = press(m, "n")
	if m.Context() != ContextTree {
		t.Error("notify input should not open without email config")
	}
	if status, isErr := m.Status(); !isErr || status != "email is not configured" {
		t.Errorf("status = %q (err=%v)", status, isErr)
	}
}

func TestEditor_Preview(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), nil)

	m, _ = press(m, "p")
	if m.Context() != ContextPreview {
		t.Fatalf("expected preview, got %v", m.Context())
	}
	if !strings.Contains(m.View(), "Survey") {
		t.Error("preview should show the questionnaire title")
	}
	m, _ = press(m, "esc")
	if m.Context() != ContextTree {
		t.Error("esc should leave the preview")
	}
}

func TestEditor_LoadTemplateFromPicker(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), func(o *EditorOptions) {
		o.UserID = "u1"
	})
	fx.backend.list = []model.QuestionnaireSummary{{ID: "t1", Title: "Exit interview"}}
	fx.backend.templates["t1"] = model.Questionnaire{
		ID:         "t1",
		Title:      "Exit interview",
		Categories: []model.Category{{Name: "Reasons"}},
	}

	m, cmd := press(m, "o")
	m, _ = runCmd(t, m, cmd)
	if m.Context() != ContextTemplatePicker {
		t.Fatalf("expected template picker, got %v", m.Context())
	}

	m, cmd = press(m, "enter")
	m, cmd = runCmd(t, m, cmd) // PickTemplateMsg -> load command
	m, _ = runCmd(t, m, cmd)   // TemplateLoadedMsg

	if m.Context() != ContextTree {
		t.Errorf("expected tree context, got %v", m.Context())
	}
	snap := fx.session.Snapshot()
	if snap.Title != "Exit interview" || len(snap.Categories) != 1 || snap.Categories[0].Name != "Reasons" {
		t.Errorf("template not loaded: %+v", snap)
	}
}

func TestEditor_TemplatesRequireLogin(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), nil)
	m, cmd := press(m, "o")
	if cmd != nil {
		t.Error("listing should not run without a user")
	}
	if status, _ := m.Status(); !strings.Contains(status, "qb login") {
		t.Errorf("status = %q", status)
	}
}

func TestEditor_InitLoadsTemplate(t *testing.T) {
	m, fx := newTestEditor(t, editorQuestionnaire(), func(o *EditorOptions) {
		o.TemplateID = "t9"
	})
	fx.backend.templates["t9"] = model.Questionnaire{Title: "Seed"}

	m, _ = runCmd(t, m, m.Init())
	if fx.session.Document().Title() != "Seed" {
		t.Errorf("Init should load the starting template")
	}
}

func TestEditor_ConfigReload(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), nil)

	cfg := config.DefaultConfig()
	cfg.UI.ExpandNew = true
	cfg.Email = config.EmailConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk"}
	updated, cmd := m.Update(ConfigReloadedMsg{Config: cfg})
	m = updated.(EditorModel)

	if cmd != nil {
		t.Error("without a worker no follow-up wait is scheduled")
	}
	if !m.expandNew || !m.emailReady {
		t.Errorf("config not applied: expandNew=%v emailReady=%v", m.expandNew, m.emailReady)
	}
	if status, _ := m.Status(); status != "Configuration reloaded" {
		t.Errorf("status = %q", status)
	}
}

func TestEditor_HelpOverlay(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), nil)
	m, _ = press(m, "?")
	if m.Context() != ContextHelp {
		t.Fatalf("expected help, got %v", m.Context())
	}
	if !strings.Contains(m.View(), "Quick Reference") {
		t.Error("help overlay should render")
	}
	m, _ = press(m, "esc")
	if m.Context() != ContextTree {
		t.Error("esc should close help")
	}
}

func TestEditor_Quit(t *testing.T) {
	m, _ := newTestEditor(t, editorQuestionnaire(), nil)
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

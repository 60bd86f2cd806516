package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/qb/pkg/config"
	"github.com/vanderheijden86/qb/pkg/model"
)

// execute runs the root command with args and returns combined output.
// Flag variables are package globals, so they are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, configPath, editTemplateID = false, "", ""
	listJSON, showOut, showRaw = false, "", false
	notifyTo, notifyID, notifyName = "", "", ""
	stdinIsTerminal = func() bool { return false }

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// setupEnv isolates config and state under temp dirs and writes a config
// pointing at baseURL.
func setupEnv(t *testing.T, baseURL string, email config.EmailConfig) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	for _, env := range []string{
		config.EnvAPIURL, config.EnvAPIToken,
		config.EnvEmailServiceID, config.EnvEmailTemplateID, config.EnvEmailPublicKey,
		"QB_DEBUG",
	} {
		t.Setenv(env, "")
	}

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.PublicBaseURL = "https://forms.example.com"
	if email.Endpoint == "" {
		email.Endpoint = config.DefaultEmailEndpoint
	}
	cfg.Email = email
	require.NoError(t, config.SaveTo(cfg, config.ConfigPath()))
}

type recorder struct {
	mu     sync.Mutex
	emails []map[string]any
}

func newServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/questionnaire/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "user-7" {
			_ = json.NewEncoder(w).Encode([]model.QuestionnaireSummary{})
			return
		}
		_ = json.NewEncoder(w).Encode([]model.QuestionnaireSummary{
			{ID: "q-1", Title: "Team pulse", Description: "Monthly check-in"},
			{ID: "q-2", Title: "Onboarding"},
		})
	})
	mux.HandleFunc("GET /api/template/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "q-1" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(model.Questionnaire{
			ID:    "q-1",
			Title: "Team pulse",
			Categories: []model.Category{{
				Name: "Work",
				SubCategories: []model.SubCategory{{
					Name: "Team",
					Topics: []model.Topic{{
						Name: "Communication",
						Questions: []model.Question{
							{Text: "How clear are priorities?", AnswerType: model.AnswerScale},
						},
					}},
				}},
			}},
		})
	})
	mux.HandleFunc("POST /email", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		rec.mu.Lock()
		rec.emails = append(rec.emails, payload)
		rec.mu.Unlock()
		_, _ = w.Write([]byte("OK"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"edit", "login", "logout", "whoami", "list", "show", "notify", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, cmd.Name())
	}
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, editCmd.Flags().Lookup("template"))
	require.NotNil(t, listCmd.Flags().Lookup("json"))
	require.NotNil(t, notifyCmd.Flags().Lookup("to"))
}

func TestVersion(t *testing.T) {
	setupEnv(t, "http://localhost:8080", config.EmailConfig{})
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "qb "), out)
}

func TestEditorNeedsTerminal(t *testing.T) {
	setupEnv(t, "http://localhost:8080", config.EmailConfig{})
	_, err := execute(t)
	require.ErrorIs(t, err, errNoTerminal)
	_, err = execute(t, "edit", "--template", "q-1")
	require.ErrorIs(t, err, errNoTerminal)
}

func TestLoginWhoamiLogout(t *testing.T) {
	setupEnv(t, "http://localhost:8080", config.EmailConfig{})

	_, err := execute(t, "whoami")
	require.ErrorIs(t, err, errNotSignedIn)

	out, err := execute(t, "login", "  user-7 ")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as user-7")

	out, err = execute(t, "whoami")
	require.NoError(t, err)
	require.Equal(t, "user-7\n", out)

	_, err = execute(t, "logout")
	require.NoError(t, err)
	_, err = execute(t, "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestLoginWithoutTerminalNeedsID(t *testing.T) {
	setupEnv(t, "http://localhost:8080", config.EmailConfig{})
	_, err := execute(t, "login")
	require.EqualError(t, err, "user id required")
}

func TestListRequiresLogin(t *testing.T) {
	srv := newServer(t, &recorder{})
	setupEnv(t, srv.URL, config.EmailConfig{})
	_, err := execute(t, "list")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestList(t *testing.T) {
	srv := newServer(t, &recorder{})
	setupEnv(t, srv.URL, config.EmailConfig{})
	_, err := execute(t, "login", "user-7")
	require.NoError(t, err)

	out, err := execute(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, lines[1], "Team pulse")
	require.Contains(t, lines[1], "Monthly check-in")
	require.Contains(t, lines[2], "q-2")

	out, err = execute(t, "list", "--json")
	require.NoError(t, err)
	var items []model.QuestionnaireSummary
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	require.Equal(t, "q-1", items[0].ID)
}

func TestListEmpty(t *testing.T) {
	srv := newServer(t, &recorder{})
	setupEnv(t, srv.URL, config.EmailConfig{})
	_, err := execute(t, "login", "nobody")
	require.NoError(t, err)

	out, err := execute(t, "list")
	require.NoError(t, err)
	require.Equal(t, "No questionnaires yet.\n", out)
}

func TestShowRaw(t *testing.T) {
	srv := newServer(t, &recorder{})
	setupEnv(t, srv.URL, config.EmailConfig{})

	out, err := execute(t, "show", "q-1", "--raw")
	require.NoError(t, err)
	require.Contains(t, out, "# Team pulse")
	require.Contains(t, out, "## Work")
	require.Contains(t, out, "1. How clear are priorities? *(Scale (1-5))*")
}

func TestShowToFile(t *testing.T) {
	srv := newServer(t, &recorder{})
	setupEnv(t, srv.URL, config.EmailConfig{})
	path := filepath.Join(t.TempDir(), "pulse.md")

	out, err := execute(t, "show", "q-1", "--out", path)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "#### Communication")
}

func TestShowMissingTemplate(t *testing.T) {
	srv := newServer(t, &recorder{})
	setupEnv(t, srv.URL, config.EmailConfig{})
	_, err := execute(t, "show", "missing", "--raw")
	require.Error(t, err)
	require.Contains(t, err.Error(), "get template missing")
}

func TestNotify(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	setupEnv(t, srv.URL, config.EmailConfig{
		ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk", Endpoint: srv.URL + "/email",
	})

	out, err := execute(t, "notify", "--to", "ana@example.com", "--id", "q-1")
	require.NoError(t, err)
	require.Equal(t, "Email sent to ana@example.com\n", out)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.emails, 1)
	params := rec.emails[0]["template_params"].(map[string]any)
	require.Equal(t, "ana@example.com", params["to_email"])
	require.Equal(t, "https://forms.example.com/questionnaire/q-1", params["questionnaire_url"])
	require.Equal(t, "Team pulse", params["template_name"])
	require.Equal(t, "Participant", params["respondent_name"])
}

func TestNotifyUnknownTitleUsesPlaceholder(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	setupEnv(t, srv.URL, config.EmailConfig{
		ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk", Endpoint: srv.URL + "/email",
	})

	_, err := execute(t, "notify", "--to", "ana@example.com", "--id", "gone")
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.emails, 1)
	params := rec.emails[0]["template_params"].(map[string]any)
	require.Equal(t, "Untitled questionnaire", params["template_name"])
}

func TestNotifyRequiresEmailConfig(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	setupEnv(t, srv.URL, config.EmailConfig{ServiceID: "svc"})

	_, err := execute(t, "notify", "--to", "ana@example.com", "--id", "q-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "email is not configured")
	require.Empty(t, rec.emails)
}

func TestNotifyWithoutTerminalNeedsFlags(t *testing.T) {
	setupEnv(t, "http://localhost:8080", config.EmailConfig{})
	_, err := execute(t, "notify", "--to", "ana@example.com")
	require.EqualError(t, err, "--to and --id are required")
}

func TestExplicitConfigFlag(t *testing.T) {
	setupEnv(t, "http://localhost:8080", config.EmailConfig{})
	alt := filepath.Join(t.TempDir(), "alt.yaml")
	cfgAlt := config.DefaultConfig()
	cfgAlt.Log.Level = "loud"
	require.NoError(t, config.SaveTo(cfgAlt, alt))

	_, err := execute(t, "--config", alt, "version")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to initialize logger")
}

package main

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/qb/pkg/notify"
	"github.com/vanderheijden86/qb/pkg/tree"
	"github.com/vanderheijden86/qb/pkg/ui"
)

var editTemplateID string

var errNoTerminal = errors.New("the editor needs an interactive terminal")

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the questionnaire editor",
	Long: `Open the questionnaire editor.

With --template the editor starts from a copy of an existing
questionnaire instead of an empty document.`,
	Args: cobra.NoArgs,
	RunE: runEditor,
}

func runEditor(cmd *cobra.Command, args []string) error {
	if !stdinIsTerminal() {
		return errNoTerminal
	}

	store := openStore()
	userID := store.CurrentUser()
	store.Close()

	sessionOpts := []tree.SessionOption{
		tree.WithOwner(userID),
		tree.WithLogger(logger.Named("session")),
	}
	var backend ui.Backend
	client, err := newClient()
	if err != nil {
		logger.Warn("backend unavailable; saving disabled", zap.Error(err))
	} else {
		backend = client
		sessionOpts = append(sessionOpts, tree.WithSaver(client))
	}

	session := tree.NewSession(nil, sessionOpts...)
	defer session.Close()

	notifier := notify.New(ui.NotifyConfig(cfg), notify.WithLogger(logger.Named("notify")))
	writer := ui.NewTemplateWriter(session, backend, notifier)

	worker := ui.NewBackgroundWorker(ui.WorkerConfig{
		ConfigPath: configPath,
		Logger:     logger.Named("worker"),
	})
	if err := worker.Start(); err != nil {
		logger.Warn("config reload disabled", zap.String("path", configPath), zap.Error(err))
	}
	defer worker.Stop()

	m := ui.NewEditorModel(ui.EditorOptions{
		Session:    session,
		Writer:     writer,
		Worker:     worker,
		Config:     cfg,
		UserID:     userID,
		TemplateID: editTemplateID,
		Logger:     logger.Named("ui"),
	})

	logger.Info("editor started", zap.String("user", userID), zap.String("template", editTemplateID))
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

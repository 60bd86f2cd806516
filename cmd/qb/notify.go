package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/qb/pkg/notify"
	"github.com/vanderheijden86/qb/pkg/ui"
)

var (
	notifyTo   string
	notifyID   string
	notifyName string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Email a respondent the link to a questionnaire",
	Long: `Email a respondent the link to a questionnaire.

Missing --to or --id values are asked for when running in a terminal.
Without --name the questionnaire title is looked up on the backend.`,
	Args: cobra.NoArgs,
	RunE: runNotify,
}

func runNotify(cmd *cobra.Command, args []string) error {
	to, id, name := strings.TrimSpace(notifyTo), strings.TrimSpace(notifyID), strings.TrimSpace(notifyName)
	if to == "" || id == "" {
		if !stdinIsTerminal() {
			return errors.New("--to and --id are required")
		}
		if err := promptNotify(&to, &id); err != nil {
			return err
		}
		to, id = strings.TrimSpace(to), strings.TrimSpace(id)
	}

	nc := ui.NotifyConfig(cfg)
	if !nc.IsEmailConfigured() {
		return errors.New("email is not configured; set email.service_id, email.template_id and email.public_key")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	if name == "" {
		if q, err := client.GetTemplate(ctx, id); err != nil {
			logger.Warn("questionnaire title lookup failed", zap.String("id", id), zap.Error(err))
		} else {
			name = q.Title
		}
	}

	n := notify.New(nc, notify.WithLogger(logger.Named("notify")))
	sent := n.SendQuestionnaireCreatedEmail(ctx, notify.Params{
		ToEmail:          to,
		QuestionnaireURL: client.QuestionnaireURL(id),
		TemplateName:     name,
	})
	if !sent {
		return fmt.Errorf("email to %s was not sent", to)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Email sent to %s\n", to)
	return nil
}

func promptNotify(to, id *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Recipient email").
				Value(to).
				Validate(requireValue("recipient")),
			huh.NewInput().
				Title("Questionnaire ID").
				Value(id).
				Validate(requireValue("questionnaire id")),
		),
	).WithTheme(huh.ThemeDracula())
	return form.Run()
}

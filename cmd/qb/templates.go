package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/qb/pkg/export"
	"github.com/vanderheijden86/qb/pkg/ui"
)

var (
	listJSON bool

	showOut string
	showRaw bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your questionnaires",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a questionnaire as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runList(cmd *cobra.Command, args []string) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	items, err := client.ListQuestionnaires(commandContext(cmd), user)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No questionnaires yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ID, it.Title, it.Description)
	}
	return tw.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	q, err := client.GetTemplate(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	if showOut != "" {
		if err := export.SaveMarkdownToFile(q, showOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", showOut)
		return nil
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if showRaw || err != nil {
		fmt.Fprint(cmd.OutOrStdout(), export.GenerateMarkdown(q))
		return nil
	}
	rendered, err := ui.RenderMarkdown(q, width)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Command qb builds questionnaires in the terminal.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/qb/pkg/api"
	"github.com/vanderheijden86/qb/pkg/config"
	"github.com/vanderheijden86/qb/pkg/logging"
	"github.com/vanderheijden86/qb/pkg/storage"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    config.Config
	logger *zap.Logger

	// stdinIsTerminal is replaced in tests.
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

var errNotSignedIn = errors.New("not signed in; run qb login first")

var rootCmd = &cobra.Command{
	Use:   "qb",
	Short: "qb - questionnaire builder",
	Long: `qb edits questionnaires as a tree of categories, subcategories,
topics and questions, saves them to the questionnaire service and emails
respondents a link.

Running qb without a subcommand opens the editor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.ConfigPath()
		}
		var err error
		if path == "" {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadFrom(path)
		}
		if err != nil {
			return err
		}
		configPath = path

		logger, err = logging.New(logging.Options{
			Level:   cfg.Log.Level,
			File:    cfg.LogFile(),
			Verbose: verbose,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("config loaded", zap.String("path", path), zap.String("command", cmd.Name()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runEditor,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/qb/config.yaml)")
	rootCmd.Flags().StringVar(&editTemplateID, "template", "", "Start from an existing questionnaire")

	editCmd.Flags().StringVar(&editTemplateID, "template", "", "Start from an existing questionnaire")

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")

	showCmd.Flags().StringVarP(&showOut, "out", "o", "", "Write markdown to a file instead of the terminal")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print markdown source without styling")

	notifyCmd.Flags().StringVar(&notifyTo, "to", "", "Recipient email address")
	notifyCmd.Flags().StringVar(&notifyID, "id", "", "Questionnaire id")
	notifyCmd.Flags().StringVar(&notifyName, "name", "", "Questionnaire name shown in the email")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newClient builds a backend client from the loaded config.
func newClient() (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:       cfg.API.BaseURL,
		PublicBaseURL: cfg.PublicURL(),
		Token:         cfg.API.Token,
		Timeout:       cfg.API.Timeout,
		Logger:        logger.Named("api"),
	})
}

func openStore() *storage.Store {
	return storage.Open(cfg.StoragePath(), logger.Named("storage"))
}

// currentUser returns the signed-in user or errNotSignedIn.
func currentUser() (string, error) {
	store := openStore()
	defer store.Close()
	user := strings.TrimSpace(store.CurrentUser())
	if user == "" {
		return "", errNotSignedIn
	}
	return user, nil
}

package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/parlo/internal"
)

// RunFunc runs a command
type RunFunc func(cmd *cobra.Command, args []string) error

// Handlers are the actions behind the commands
type Handlers struct {
	Translate         RunFunc
	Session           RunFunc
	Serve             RunFunc
	PhrasebookSeed    RunFunc
	PhrasebookImport  RunFunc
	PhrasebookList    RunFunc
	PhrasebookArchive RunFunc
	Models            RunFunc
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, handlers Handlers) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parlo",
		Short: "Dictation translator with online and offline engines",
		Long: `parlo translates short dictated phrases.

It translates through an online service while the network is reachable and
falls back to a local model when it is not, or when the online call fails.

Examples:
  parlo                                   # Start an interactive session (default)
  parlo translate "Good morning"          # Translate one phrase
  parlo translate --mode offline "Thanks" # Force the local model
  parlo translate --batch phrases.txt     # Translate one phrase per line
  parlo serve                             # Serve the HTTP API
  parlo phrasebook seed                   # Create the demo phrasebook`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		RunE:          handlers.Session,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		createTranslateCommand(flags, handlers.Translate),
		createSessionCommand(handlers.Session),
		createServeCommand(flags, handlers.Serve),
		createPhrasebookCommand(flags, handlers),
		createModelsCommand(flags, handlers.Models),
	)

	return rootCmd
}

func createTranslateCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [phrase]",
		Short: "Translate a phrase or a file of phrases",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	cmd.Flags().StringVarP(&flags.Mode, "mode", "m", flags.Mode, "Requested mode: auto, online or offline")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Translate phrases from file (one per line)")
	cmd.Flags().IntVar(&flags.Workers, "workers", flags.Workers, "Concurrent translations in batch mode")
	return cmd
}

func createSessionCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start an interactive translation session",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func createServeCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation HTTP API",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", flags.Listen, "Address to listen on")
	viper.BindPFlag("http.listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func createPhrasebookCommand(flags *Flags, handlers Handlers) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phrasebook",
		Short: "Manage the offline phrasebook",
	}
	cmd.PersistentFlags().StringVar(&flags.Phrasebook, "db", "", "Phrasebook database (default is offline.phrasebook)")
	viper.BindPFlag("offline.phrasebook", cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(
		&cobra.Command{
			Use:   "seed",
			Short: "Add the built-in demo phrases",
			Args:  cobra.NoArgs,
			RunE:  handlers.PhrasebookSeed,
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Import \"phrase = translation\" lines for the current language pair",
			Args:  cobra.ExactArgs(1),
			RunE:  handlers.PhrasebookImport,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all phrases",
			Args:  cobra.NoArgs,
			RunE:  handlers.PhrasebookList,
		},
		&cobra.Command{
			Use:   "archive",
			Short: "Move the phrasebook into the archive directory next to it",
			Args:  cobra.NoArgs,
			RunE:  handlers.PhrasebookArchive,
		},
	)
	return cmd
}

func createModelsCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available online and local models",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	cmd.Flags().BoolVar(&flags.Local, "local", false, "List the models of the local inference server instead")
	return cmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.parlo.yaml)")
	pf.StringVarP(&flags.Source, "source", "s", flags.Source, "Source language code, or auto")
	pf.StringVarP(&flags.Target, "target", "t", flags.Target, "Target language code")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: console or json")
	pf.BoolVar(&flags.Speak, "speak", false, "Speak translations aloud")
	pf.BoolVar(&flags.PreferOnline, "prefer-online", flags.PreferOnline, "Prefer online translation while the network is reachable")
	pf.StringVar(&flags.Engine, "engine", flags.Engine, "Offline engine: localmodel or phrasebook")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("lang.source", pf.Lookup("source"))
	viper.BindPFlag("lang.target", pf.Lookup("target"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
	viper.BindPFlag("speech.enabled", pf.Lookup("speak"))
	viper.BindPFlag("mode.prefer_online", pf.Lookup("prefer-online"))
	viper.BindPFlag("offline.engine", pf.Lookup("engine"))
}

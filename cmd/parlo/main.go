package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/parlo/internal/cli"
	"codeberg.org/snonux/parlo/internal/logging"
	"codeberg.org/snonux/parlo/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command with one handler per subcommand
	rootCmd := cli.CreateRootCommand(flags, cli.Handlers{
		Translate: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, flags)
		},
		Session: runSession,
		Serve: func(cmd *cobra.Command, args []string) error {
			return withProcessor(cmd, func(ctx context.Context, proc *processor.Processor) error {
				return proc.Serve(ctx, flags.Listen)
			})
		},
		PhrasebookSeed: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(ctx context.Context, settings cli.Settings, _ zerolog.Logger) error {
				return processor.SeedPhrasebook(ctx, settings.Phrasebook, cmd.OutOrStdout())
			})
		},
		PhrasebookImport: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(ctx context.Context, settings cli.Settings, _ zerolog.Logger) error {
				return processor.ImportPhrasebook(ctx, settings.Phrasebook, args[0], settings.Source, settings.Target, cmd.OutOrStdout())
			})
		},
		PhrasebookList: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(ctx context.Context, settings cli.Settings, _ zerolog.Logger) error {
				return processor.ListPhrasebook(ctx, settings.Phrasebook, cmd.OutOrStdout())
			})
		},
		PhrasebookArchive: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(ctx context.Context, settings cli.Settings, _ zerolog.Logger) error {
				return processor.ArchivePhrasebook(settings.Phrasebook, cmd.OutOrStdout())
			})
		},
		Models: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, func(ctx context.Context, settings cli.Settings, _ zerolog.Logger) error {
				return processor.ListModels(ctx, settings, flags.Local, cmd.OutOrStdout())
			})
		},
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTranslate(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	if flags.BatchFile == "" && len(args) == 0 {
		return fmt.Errorf("provide a phrase to translate or --batch <file>")
	}

	return withProcessor(cmd, func(ctx context.Context, proc *processor.Processor) error {
		if flags.BatchFile != "" {
			return proc.ProcessBatch(ctx, flags.BatchFile, flags.Mode, flags.Workers)
		}
		return proc.TranslateOne(ctx, args[0], flags.Mode)
	})
}

func runSession(cmd *cobra.Command, args []string) error {
	return withProcessor(cmd, func(ctx context.Context, proc *processor.Processor) error {
		return proc.RunSession(ctx, cmd.InOrStdin())
	})
}

// withSettings loads the settings and logger and runs fn until it returns
// or the process is interrupted
func withSettings(cmd *cobra.Command, fn func(context.Context, cli.Settings, zerolog.Logger) error) error {
	settings, err := cli.LoadSettings()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, settings, logger)
}

func withProcessor(cmd *cobra.Command, fn func(context.Context, *processor.Processor) error) error {
	return withSettings(cmd, func(ctx context.Context, settings cli.Settings, logger zerolog.Logger) error {
		proc, err := processor.NewProcessor(settings, logger, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer proc.Close()

		return fn(ctx, proc)
	})
}

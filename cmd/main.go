package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ai-speech-translation-service/internal/app"
	"ai-speech-translation-service/internal/config"
	"ai-speech-translation-service/internal/observability/logging"
)

// shutdownTimeout bounds how long queued clips may keep playing on exit.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		os.Exit(1)
	}
}

type runFunc func(ctx context.Context, cfg *config.Configuration) error

func newRootCmd(runner runFunc) *cobra.Command {
	var langs config.Languages
	var input string

	cmd := &cobra.Command{
		Use:   "speech-translation",
		Short: "Translate speech from the microphone and speak it back",
		Long: `Streams microphone audio to speech recognition, translates every finished
utterance, synthesizes it in the target voice and plays it back.
Say "exit" or "quit" to stop.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load .env if present
			_ = godotenv.Load()

			cfg := config.Load()
			cfg.Languages = langs
			if input != "" {
				cfg.Audio.InputFile = input
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logging.Init(logging.Config{
				Level:  cfg.Observability.LogLevel,
				Format: cfg.Observability.LogFormat,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runner(ctx, cfg); err != nil {
				log.Error().Err(err).Msg("Speech translation failed")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&langs.From, "languageFrom", "f", "", "language spoken into the microphone, e.g. en-US")
	flags.StringVarP(&langs.Translate, "translateLanguage", "t", "", "language to translate into, e.g. fr")
	flags.StringVarP(&langs.To, "languageTo", "l", "", "language of the synthesized voice, e.g. fr-FR")
	flags.StringVar(&input, "input", "", "replay a 16-bit mono WAV file instead of the microphone")
	_ = cmd.MarkFlagRequired("languageFrom")
	_ = cmd.MarkFlagRequired("translateLanguage")
	_ = cmd.MarkFlagRequired("languageTo")

	return cmd
}

func run(ctx context.Context, cfg *config.Configuration) error {
	comps, err := app.NewComponents(ctx, cfg)
	if err != nil {
		return err
	}
	application, err := app.New(cfg, comps)
	if err != nil {
		return err
	}
	if err := application.Start(); err != nil {
		return err
	}

	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	application.Shutdown(shutdownCtx)

	return runErr
}

package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"ai-speech-translation-service/internal/config"
)

func execute(t *testing.T, args ...string) (*config.Configuration, error) {
	t.Helper()
	var got *config.Configuration
	cmd := newRootCmd(func(ctx context.Context, cfg *config.Configuration) error {
		got = cfg
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return got, err
}

func TestRootCmd_RequiresAllLanguages(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		missing string
	}{
		{"none", nil, "languageFrom"},
		{"no target", []string{"-f", "en-US", "-l", "fr-FR"}, "translateLanguage"},
		{"no voice", []string{"-f", "en-US", "-t", "fr"}, "languageTo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected usage error")
			}
			if !strings.Contains(err.Error(), "required flag") || !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("expected missing %s, got %v", tt.missing, err)
			}
			if cfg != nil {
				t.Error("runner must not be called")
			}
		})
	}
}

func TestRootCmd_BindsFlags(t *testing.T) {
	t.Setenv("STT_PROVIDER", "mock")

	cfg, err := execute(t, "--languageFrom", "en-US", "--translateLanguage", "fr", "--languageTo", "fr-FR", "--input", "speech.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := config.Languages{From: "en-US", Translate: "fr", To: "fr-FR"}
	if cfg.Languages != want {
		t.Errorf("got %+v, want %+v", cfg.Languages, want)
	}
	if cfg.Audio.InputFile != "speech.wav" {
		t.Errorf("expected input file, got %q", cfg.Audio.InputFile)
	}
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected env config to be loaded, got provider %q", cfg.STT.Provider)
	}
}

func TestRootCmd_RejectsMalformedLanguage(t *testing.T) {
	_, err := execute(t, "-f", "en-US", "-t", "not a tag!", "-l", "fr-FR")
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRootCmd_PropagatesRunError(t *testing.T) {
	boom := errors.New("device missing")
	cmd := newRootCmd(func(ctx context.Context, cfg *config.Configuration) error { return boom })
	cmd.SetArgs([]string{"-f", "en-US", "-t", "fr", "-l", "fr-FR"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); !errors.Is(err, boom) {
		t.Errorf("expected run error, got %v", err)
	}
}

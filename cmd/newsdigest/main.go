package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/content"
	"github.com/umputun/newsdigest/pkg/digest"
	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/feed"
	"github.com/umputun/newsdigest/pkg/llm"
	"github.com/umputun/newsdigest/pkg/repository"
	"github.com/umputun/newsdigest/pkg/scheduler"
	"github.com/umputun/newsdigest/pkg/setup"
	"github.com/umputun/newsdigest/server"
)

// Opts with all CLI options
type Opts struct {
	Config        string `short:"c" long:"config" env:"CONFIG" default:"newsdigest.yml" description:"application config file"`
	Settings      string `short:"s" long:"settings" env:"SETTINGS" default:"config.json" description:"digest settings file"`
	OpenAIKey     string `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIKeyFile string `long:"openai-key-file" env:"OPENAI_KEY_FILE" default:"openai_key.txt" description:"file with OpenAI API key, used if exists"`
	Listen        string `short:"l" long:"listen" env:"LISTEN" description:"listen address for serve, overrides config"`

	RunCmd   struct{} `command:"run" description:"load or collect settings and send digests until stopped (default)"`
	SetupCmd struct{} `command:"setup" description:"collect and save digest settings on the console"`
	ChatCmd  struct{} `command:"chat" description:"chat with the setup assistant, start digests after confirmation"`
	ServeCmd struct{} `command:"serve" description:"run the HTTP chat API and digests for saved settings"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

// time limit for a single SMTP command
const mailTimeout = time.Minute

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	color.NoColor = color.NoColor || opts.NoColor
	setupLog(opts.Debug, opts.OpenAIKey)

	log.Printf("[INFO] starting newsdigest version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	cmd := "run"
	if parser.Active != nil {
		cmd = parser.Active.Name
	}

	err := run(ctx, opts, cmd, os.Stdin, os.Stdout)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %s failed: %v", cmd, err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run executes the command, it returns when the command is done or ctx is canceled
func run(ctx context.Context, opts Opts, cmd string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	cfg.LLM.APIKey = apiKey(opts, cfg.LLM.APIKey)

	repo := repository.NewSettingsRepository(opts.Settings)
	job := newJob(cfg)

	switch cmd {
	case "setup":
		conv := setup.NewConversation(setup.Params{Assistant: newAssistant(cfg), Saver: repo})
		s, err := setup.NewWizard(conv, in, out).Run(ctx)
		if err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		lgr.Printf("[INFO] settings for %q saved to %s", s.Keywords, repo.Path())
		return nil

	case "chat":
		launcher := scheduler.NewLauncher(ctx, job, 0)
		conv := setup.NewConversation(setup.Params{Assistant: newAssistant(cfg), Saver: repo, Launcher: launcher})
		s, err := setup.NewWizard(conv, in, out).Run(ctx)
		if errors.Is(err, setup.ErrCanceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}
		setupLog(opts.Debug, secrets(cfg, s)...)
		launcher.Wait()
		return nil

	case "serve":
		return serve(ctx, cfg, repo, job, opts.Debug)

	case "run":
		conv := setup.NewConversation(setup.Params{Saver: repo})
		s, err := setup.EnsureSettings(ctx, repo, setup.NewWizard(conv, in, out))
		if err != nil {
			return err
		}
		setupLog(opts.Debug, secrets(cfg, s)...)
		fmt.Fprintln(out, "Agent started. Press Ctrl+C to stop.") //nolint:errcheck // console output
		scheduler.NewScheduler(scheduler.Params{Job: job, Settings: s}).Run(ctx)
		return nil
	}

	return fmt.Errorf("unknown command %q", cmd)
}

// serve runs the HTTP chat API and the scheduler launcher until ctx is canceled
func serve(ctx context.Context, cfg *config.Config, repo *repository.SettingsRepository, job scheduler.Job, dbg bool) error {
	g, gctx := errgroup.WithContext(ctx)
	launcher := scheduler.NewLauncher(gctx, job, 0)

	s, err := repo.Load()
	switch {
	case err == nil:
		launcher.Launch(s)
	case errors.Is(err, repository.ErrNotFound):
		lgr.Printf("[INFO] no saved settings in %s, waiting for a chat setup", repo.Path())
	default:
		lgr.Printf("[WARN] can't use saved settings: %v", err)
	}

	conv := setup.NewConversation(setup.Params{Assistant: newAssistant(cfg), Saver: repo, Launcher: launcher})
	srv := server.New(cfg, conv, launcher, revision, dbg)

	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		launcher.Wait()
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// newJob makes the digest job with the configured sources
func newJob(cfg *config.Config) *digest.Job {
	params := digest.JobParams{
		News:   feed.NewNewsSearcher(cfg.News),
		Papers: feed.NewPaperSearcher(cfg.Papers),
		Sender: digest.NewMailer(mailTimeout, nil),
	}
	if cfg.Extraction.Enabled {
		params.Extractor = content.NewHTTPExtractor(cfg.Extraction.Timeout, cfg.Extraction.ExcerptLength)
	}
	return digest.NewJob(params)
}

// newAssistant returns the LLM assistant if enabled, nil keeps replies scripted
func newAssistant(cfg *config.Config) setup.Assistant {
	if !cfg.LLM.Enabled {
		return nil
	}
	return llm.NewAssistant(cfg.LLM)
}

// apiKey picks the OpenAI key: key file first, then the flag or env, then the config value
func apiKey(opts Opts, cfgKey string) string {
	if opts.OpenAIKeyFile != "" {
		if data, err := os.ReadFile(opts.OpenAIKeyFile); err == nil { //nolint:gosec // file path comes from CLI flag
			if key := strings.TrimSpace(string(data)); key != "" {
				return key
			}
		}
	}
	if opts.OpenAIKey != "" {
		return opts.OpenAIKey
	}
	return cfgKey
}

// secrets returns values to hide in logs
func secrets(cfg *config.Config, s domain.Settings) []string {
	return []string{cfg.LLM.APIKey, s.SenderPassword}
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(os.Stderr), lgr.Err(os.Stderr)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError, lgr.Out(os.Stderr)}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	secs = nonEmpty(secs)
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

// nonEmpty drops empty values, they can't be masked
func nonEmpty(vals []string) []string {
	res := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			res = append(res, v)
		}
	}
	return res
}

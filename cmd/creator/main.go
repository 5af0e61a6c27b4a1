package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rahul/creator/internal/agent"
	"github.com/rahul/creator/internal/gateway"
	"github.com/rahul/creator/internal/governance"
	"github.com/rahul/creator/internal/observability"
	"github.com/rahul/creator/internal/store"
	"github.com/rahul/creator/internal/tools"
	"github.com/rahul/creator/pkg/config"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type options struct {
	configFile    string
	logLevel      string
	workspace     string
	iterations    int
	useLLM        bool
	provider      string
	ollamaModel   string
	ollamaBaseURL string
	prompts       string
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "creator GOAL",
		Short:         "Build a project from a goal in plan, execute, critique rounds",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default: ./"+config.DefaultConfigPath+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.workspace, "workspace", "generated", "directory all generated files are confined to")

	f := root.Flags()
	f.IntVar(&opts.iterations, "iterations", 2, "number of plan, execute, critique rounds (minimum 1)")
	f.BoolVar(&opts.useLLM, "use-llm", false, "plan with a language model instead of the offline template")
	f.StringVar(&opts.provider, "provider", config.ProviderAuto, "model provider: auto, openai or ollama")
	f.StringVar(&opts.ollamaModel, "ollama-model", "llama3.2:3b", "ollama model name")
	f.StringVar(&opts.ollamaBaseURL, "ollama-base-url", "http://127.0.0.1:11434", "ollama server URL")
	f.StringVar(&opts.prompts, "prompts", "", "directory of prompt fragments (default: built-in planner prompt)")

	root.AddCommand(historyCmd(opts))
	return root
}

func historyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the run ledger of a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			records, err := store.NewLedger(cfg.App.Workspace).Load()
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), records)
		},
	}
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path, explicit := opts.configFile, true
	if path == "" {
		path, explicit = config.DefaultConfigPath, false
	}
	cfg, err := config.LoadConfig(path, explicit)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if changed("workspace") {
		cfg.App.Workspace = opts.workspace
	}
	if changed("iterations") {
		cfg.App.Iterations = opts.iterations
	}
	if changed("use-llm") {
		cfg.App.UseLLM = opts.useLLM
	}
	if changed("provider") {
		cfg.App.Provider = opts.provider
	}
	if changed("prompts") {
		cfg.App.Prompts = opts.prompts
	}
	if changed("ollama-model") || changed("ollama-base-url") {
		p := cfg.Providers[config.ProviderOllama]
		if changed("ollama-model") {
			p.Model = opts.ollamaModel
		}
		if changed("ollama-base-url") {
			p.BaseURL = opts.ollamaBaseURL
		}
		cfg.Providers[config.ProviderOllama] = p
	}
	cfg.App.Iterations = config.ClampIterations(cfg.App.Iterations)
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, goal string, stdout, stderr io.Writer) error {
	runID := uuid.NewString()

	sandbox, err := tools.NewSandbox(cfg.App.Workspace)
	if err != nil {
		return err
	}
	runsDir := filepath.Join(sandbox.Root(), store.RunsDir)

	logger, err := observability.NewLogger(observability.Options{
		Level:      cfg.Log.Level,
		Console:    stderr,
		EventsPath: filepath.Join(runsDir, observability.EventsFile),
		RunID:      runID,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	policy := governance.NewDefaultPolicyEngine()
	// Plans must never touch the ledger, transcript or event log.
	if err := policy.DenyPath(`^` + regexp.QuoteMeta(store.RunsDir) + `(/|$)`); err != nil {
		return err
	}
	for _, pattern := range cfg.Policy.DenyPaths {
		if err := policy.DenyPath(pattern); err != nil {
			return fmt.Errorf("policy.deny_paths %q: %w", pattern, err)
		}
	}
	for _, action := range cfg.Policy.DenyActions {
		policy.DenyAction(action)
	}

	reasoner, closeReasoner, err := buildReasoner(cfg, runsDir, runID, logger)
	if err != nil {
		return err
	}
	defer closeReasoner()

	console := newConsole(stdout)
	reporters := []agent.Reporter{console}
	if messengers := buildMessengers(cfg, logger); len(messengers) > 0 {
		reporters = append(reporters, gateway.NewBroadcaster(goal, logger, messengers...))
	}

	loop := agent.NewLoop(
		reasoner,
		tools.NewExecutor(sandbox, policy, logger),
		store.NewLedger(sandbox.Root()),
		logger,
		reporters...,
	)

	console.PrintBanner(goal, sandbox.Root(), cfg.App.Iterations)
	logger.Slog().Info("run started", "goal", goal, "workspace", sandbox.Root(), "iterations", cfg.App.Iterations)
	return loop.Run(ctx, goal, cfg.App.Iterations)
}

func newConsole(w io.Writer) *observability.Console {
	if f, ok := w.(*os.File); ok {
		return observability.NewConsole(f)
	}
	return &observability.Console{Out: w}
}

func buildReasoner(cfg *config.Config, runsDir, runID string, logger *observability.Logger) (agent.Reasoner, func(), error) {
	noop := func() {}
	if !cfg.App.UseLLM {
		return agent.NewTemplateReasoner(), noop, nil
	}

	name, provider, err := cfg.ResolveProvider(cfg.App.Provider)
	if err != nil {
		return nil, noop, err
	}

	var model llms.Model
	switch name {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(provider.APIKey),
			openai.WithModel(provider.Model),
		}
		if provider.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(provider.BaseURL))
		}
		model, err = openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(provider.Model),
			ollama.WithFormat("json"),
		}
		if provider.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(provider.BaseURL))
		}
		model, err = ollama.New(opts...)
	}
	if err != nil {
		return nil, noop, fmt.Errorf("init %s: %w", name, err)
	}

	var history agent.HistoryStore
	closer := noop
	if cfg.Memory.Transcript {
		h, err := store.NewHistoryStore(filepath.Join(runsDir, store.TranscriptFile))
		if err != nil {
			return nil, noop, err
		}
		history = h
		closer = func() { _ = h.Close() }
	}

	reasoner := agent.NewLLMReasoner(model, name+"/"+provider.Model, agent.NewPromptManager(cfg.App.Prompts), history, runID, logger)
	reasoner.HistoryLimit = cfg.Memory.HistoryLimit
	return reasoner, closer, nil
}

func buildMessengers(cfg *config.Config, logger *observability.Logger) []gateway.Messenger {
	var messengers []gateway.Messenger
	if tg, ok := cfg.GetGatewayConfig("telegram"); ok {
		m, err := gateway.NewTelegramGateway(tg.Token, tg.ChatID)
		if err != nil {
			logger.LogNotifyFailure("telegram", err)
		} else {
			messengers = append(messengers, m)
		}
	}
	if dc, ok := cfg.GetGatewayConfig("discord"); ok {
		m, err := gateway.NewDiscordGateway(dc.Token, dc.ChannelID)
		if err != nil {
			logger.LogNotifyFailure("discord", err)
		} else {
			messengers = append(messengers, m)
		}
	}
	return messengers
}

func printHistory(w io.Writer, records []store.RunRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	for i, r := range records {
		files := make([]string, 0, len(r.Plan))
		for _, s := range r.Plan {
			files = append(files, s.Path)
		}
		list := "none"
		if len(files) > 0 {
			list = strings.Join(files, ", ")
		}
		if _, err := fmt.Fprintf(w, "#%d %s %s\n  files: %s\n  critique: %s\n", i+1, r.Timestamp, r.Goal, list, r.Critique); err != nil {
			return err
		}
	}
	return nil
}

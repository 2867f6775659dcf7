package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/willibrandon/glance/internal/config"
	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/headless"
	"github.com/willibrandon/glance/internal/llm"
	"github.com/willibrandon/glance/internal/logger"
	"github.com/willibrandon/glance/internal/orchestrator"
	"github.com/willibrandon/glance/internal/state"
	"github.com/willibrandon/glance/internal/tui"
)

// Exit codes per spec.md §6: 0 success, 1 headless assertion failure,
// 2 configuration or syntax error.
const (
	exitOK     = 0
	exitAssert = 1
	exitConfig = 2
)

var (
	version = "dev"

	statePath  string
	debug      bool
	connection string

	flagHost     string
	flagPort     int
	flagDatabase string
	flagUser     string
	flagConfig   string
	flagLLM      string
	flagModel    string
	flagHeadless bool
	flagMockDB   bool
	flagEvents   string
	flagScript   string
	flagOutput   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "glance [CONNECTION_STRING]",
		Short:   "A terminal companion that turns questions about your Postgres database into SQL",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE:    run,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&statePath, "state", "", "path to the local state database (default ~/.config/glance/glance.db)")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringVarP(&connection, "connection", "c", "", "name of a saved connection profile to open on startup")

	flags.StringVar(&flagHost, "host", "", "database host")
	flags.IntVar(&flagPort, "port", 0, "database port")
	flags.StringVar(&flagDatabase, "database", "", "database name")
	flags.StringVar(&flagUser, "user", "", "database user")
	flags.StringVar(&flagConfig, "config", "", "path to a config file, bypassing the default search path")
	flags.StringVar(&flagLLM, "llm", "", "LLM provider, overriding the persisted setting")
	flags.StringVar(&flagModel, "model", "", "LLM model, overriding the persisted setting")
	flags.BoolVar(&flagHeadless, "headless", false, "run a scripted session with no rendered terminal")
	flags.BoolVar(&flagMockDB, "mock-db", false, "connect to the in-memory mock database instead of Postgres")
	flags.StringVar(&flagEvents, "events", "", "comma/newline-separated headless event DSL (requires --headless)")
	flags.StringVar(&flagScript, "script", "", "path to a headless event script, or - for stdin (requires --headless)")
	flags.StringVar(&flagOutput, "output", "text", "headless output format: text, json, or frames")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	if flagLLM != "" {
		cfg.LLM.Provider = flagLLM
	}
	if flagModel != "" {
		cfg.LLM.Model = flagModel
	}

	level := logger.LevelInfo
	if cfg.Debug {
		level = logger.LevelDebug
	}
	logger.Init(level, "", logger.Options{
		RingBufferSize: cfg.Logging.RingBufferSize,
		MaxSizeMB:      cfg.Logging.MaxSizeMB,
		MaxBackups:     cfg.Logging.MaxBackups,
		MaxAgeDays:     cfg.Logging.MaxAgeDays,
		Compress:       cfg.Logging.Compress,
	})
	defer logger.Close()

	stateDB, err := state.Open(statePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer stateDB.Close()

	client, err := buildLLMClient(stateDB, cfg)
	if err != nil {
		// An unconfigured or broken LLM provider degrades gracefully:
		// the session still starts, and raw /sql keeps working.
		logger.Warn("falling back to the mock LLM client", "error", err)
		client = llm.NewMockClient()
	}

	core := orchestrator.NewCore(stateDB, llm.NewService(client))
	handle := orchestrator.Spawn(core, 8)
	defer handle.Close()

	connCfg, haveConn, err := resolveStartupConnection(cfg, args)
	if err != nil {
		return err
	}

	if flagHeadless {
		return runHeadless(cmd.Context(), handle, connCfg, haveConn)
	}
	return runInteractive(cmd, handle, cfg, connCfg, haveConn)
}

// resolveStartupConnection merges the positional CONNECTION_STRING,
// --host/--port/--database/--user overrides, --mock-db, and the
// config file's defaults into a single ConnectionConfig. It returns
// haveConn=false only when --connection is being used instead (main's
// "/connect <name>" path handles that case), and the caller should
// not auto-connect at all.
func resolveStartupConnection(cfg *config.Config, args []string) (dbgateway.ConnectionConfig, bool, error) {
	if connection != "" {
		return dbgateway.ConnectionConfig{}, false, nil
	}

	connCfg := dbgateway.ConnectionConfig{
		Backend:  dbgateway.BackendPostgres,
		Host:     cfg.Connection.Host,
		Port:     cfg.Connection.Port,
		Database: cfg.Connection.Database,
		User:     cfg.Connection.User,
		SSLMode:  cfg.Connection.SSLMode,
	}

	if len(args) == 1 && args[0] != "" {
		parsed, err := dbgateway.ParseConnectionString(args[0])
		if err != nil {
			return dbgateway.ConnectionConfig{}, false, err
		}
		connCfg = parsed
	}

	if flagHost != "" {
		connCfg.Host = flagHost
	}
	if flagPort != 0 {
		connCfg.Port = flagPort
	}
	if flagDatabase != "" {
		connCfg.Database = flagDatabase
	}
	if flagUser != "" {
		connCfg.User = flagUser
	}
	if flagMockDB {
		connCfg.Backend = dbgateway.BackendMock
	}

	resolved, err := dbgateway.ResolvePassword(connCfg, cfg.Connection.PasswordCommand)
	if err != nil {
		return dbgateway.ConnectionConfig{}, false, err
	}
	return resolved, true, nil
}

func runInteractive(cmd *cobra.Command, handle *orchestrator.Handle, cfg *config.Config, connCfg dbgateway.ConnectionConfig, haveConn bool) error {
	model := tui.New(handle, cfg.UI.Theme)

	switch {
	case connection != "":
		model.SetStatus(fmt.Sprintf("connecting to %s...", connection))
		go func() { handle.HandleInput(cmd.Context(), "/connect "+connection, nil) }()
	case haveConn:
		model.SetStatus(fmt.Sprintf("connecting to %s:%d/%s...", connCfg.Host, connCfg.Port, connCfg.Database))
		go func() { handle.SwitchConnection(cmd.Context(), "cli", connCfg) }()
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// runHeadless drives the orchestrator through the --events/--script
// DSL with no rendered terminal, per spec.md's headless mode, and
// maps the result to the process exit code.
func runHeadless(ctx context.Context, handle *orchestrator.Handle, connCfg dbgateway.ConnectionConfig, haveConn bool) error {
	if connection != "" {
		if _, err := handle.HandleInput(ctx, "/connect "+connection, nil); err != nil {
			return fmt.Errorf("failed to connect to %q: %w", connection, err)
		}
	} else if haveConn {
		if _, err := handle.SwitchConnection(ctx, "cli", connCfg); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}

	script, err := loadHeadlessScript()
	if err != nil {
		return err
	}

	events, err := headless.ParseAll(script)
	if err != nil {
		return fmt.Errorf("invalid event script: %w", err)
	}

	format, err := headless.ParseOutputFormat(flagOutput)
	if err != nil {
		return err
	}

	runner := headless.NewRunner(handle, headless.Config{FailFast: false})
	result, err := runner.Run(ctx, events)
	if err != nil {
		return fmt.Errorf("headless run failed: %w", err)
	}

	fmt.Print(headless.FormatResult(result, format))

	if result.AssertionsFailed > 0 {
		os.Exit(exitAssert)
	}
	return nil
}

func loadHeadlessScript() (string, error) {
	switch {
	case flagScript == "-":
		buf, err := readAllStdin()
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return buf, nil
	case flagScript != "":
		buf, err := os.ReadFile(flagScript)
		if err != nil {
			return "", fmt.Errorf("failed to read script file: %w", err)
		}
		return string(buf), nil
	case flagEvents != "":
		return flagEvents, nil
	default:
		return "", fmt.Errorf("--headless requires --events or --script")
	}
}

func readAllStdin() (string, error) {
	buf, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// buildLLMClient resolves the provider/model/key: the --llm/--model
// flags win, then the persisted LLM settings, then the config
// file/env/default values when a persisted field is empty.
func buildLLMClient(stateDB *state.Store, cfg *config.Config) (llm.Client, error) {
	settings, err := stateDB.LLMSettings.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to read LLM settings: %w", err)
	}

	provider := settings.Provider
	if flagLLM != "" || provider == "" {
		provider = cfg.LLM.Provider
	}
	model := settings.Model
	if flagModel != "" || model == "" {
		model = cfg.LLM.Model
	}

	apiKey, err := stateDB.LLMSettings.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve the stored API key: %w", err)
	}

	return llm.CreateClient(provider, apiKey, model)
}

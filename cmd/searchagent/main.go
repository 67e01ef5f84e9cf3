package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"searchagent/internal/agent"
	"searchagent/internal/channel"
	"searchagent/internal/config"
	"searchagent/internal/domain"
	"searchagent/internal/memory"
	"searchagent/internal/provider"
	"searchagent/internal/tool"
)

var (
	version    = "0.1.0"
	logger     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	configPath string // overridable via --config flag
	debugFlag  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "searchagent",
		Short:         "searchagent: a conversational search assistant",
		Long:          "searchagent answers questions with an LLM that calls web search, encyclopedia, math and cryptocurrency tools.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json or config.yaml (default: ~/.searchagent/config.json)")
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(askCmd())
	root.AddCommand(toolsCmd())
	root.AddCommand(cryptoCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	return root
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file, falling back to defaults plus
// environment when the file does not exist, and installs the root logger.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}
	if debugFlag {
		cfg.General.Debug = true
	}
	logger = setupLogger(cfg.General, os.Stderr)
	slog.SetDefault(logger)
	return cfg, nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// app bundles everything a conversation needs.
type app struct {
	loop   *agent.Loop
	tools  *tool.Registry
	store  domain.MemoryStore
	closer func()
}

func buildRuntime(cfg *config.Config) (*app, error) {
	var store domain.MemoryStore
	if cfg.Memory.Enabled {
		s, err := memory.NewSQLiteStore(cfg.Memory.DBPath, logger)
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		store = memory.NewBufferStore()
	}

	prov, err := provider.NewFactory(cfg, logger).Chain()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("LLM provider: %w", err)
	}

	tools, cryptoCloser, err := registerTools(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	loop := agent.NewLoop(agent.LoopConfig{
		Provider:      prov,
		Sessions:      agent.NewSessionManager(store, logger),
		Prompt:        agent.NewPromptBuilder(agent.PromptConfig{SystemPromptExtra: cfg.General.SystemPromptExtra}),
		Tools:         tools,
		Logger:        logger,
		MaxIterations: cfg.General.MaxIterations,
		HistoryLimit:  cfg.Memory.MaxHistoryPerConversation,
		Temperature:   cfg.General.Temperature,
		MaxTokens:     cfg.General.MaxTokens,
	})

	return &app{
		loop:  loop,
		tools: tools,
		store: store,
		closer: func() {
			cryptoCloser()
			store.Close()
		},
	}, nil
}

func printRegisteredTools(w io.Writer, tools *tool.Registry) {
	for _, name := range tools.Names() {
		fmt.Fprintf(w, "Registered Agent: [%s]\n", name)
	}
}

func chatCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.closer()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printRegisteredTools(cmd.OutOrStdout(), rt.tools)
			fmt.Fprintln(cmd.OutOrStdout())

			if session == "" {
				session = agent.NewSessionKey()
			}
			cli := channel.NewCLI(channel.CLIConfig{
				Agent:      rt.loop,
				SessionKey: session,
				Logger:     logger,
				Spinner:    !cfg.General.Debug,
			})
			return cli.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "resume a conversation by key (default: new conversation)")
	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.closer()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			answer, err := rt.loop.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools enabled by the current config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tools, closer, err := registerTools(cfg)
			if err != nil {
				return err
			}
			defer closer()
			printRegisteredTools(cmd.OutOrStdout(), tools)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. coinmarketcap.cacheDurationDays)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. search.coinmarketcap true)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if errors.Is(err, fs.ErrNotExist) {
				cfg, err = config.Defaults(), nil
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	var flat bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flat {
				paths := config.ListPaths(config.Sanitize(cfg))
				for _, p := range slices.Sorted(maps.Keys(paths)) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", p, paths[p])
				}
				return nil
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&flat, "flat", false, "print one dot-path per line")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		},
	})

	return cmd
}

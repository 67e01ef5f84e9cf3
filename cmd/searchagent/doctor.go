package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"searchagent/internal/memory"
	"searchagent/internal/provider"
)

// doctorReport tallies check outcomes.
type doctorReport struct {
	out                    io.Writer
	passed, warned, failed int
}

func (r *doctorReport) pass(check, detail string) {
	r.passed++
	fmt.Fprintf(r.out, "  %s %-22s %s\n", color.GreenString("[PASS]"), check, detail)
}

func (r *doctorReport) warn(check, detail string) {
	r.warned++
	fmt.Fprintf(r.out, "  %s %-22s %s\n", color.YellowString("[WARN]"), check, detail)
}

func (r *doctorReport) fail(check, detail string) {
	r.failed++
	fmt.Fprintf(r.out, "  %s %-22s %s\n", color.RedString("[FAIL]"), check, detail)
}

func doctorCmd() *cobra.Command {
	var online bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the configuration",
		Long: `Verifies that the configuration, providers, memory database, search
tool credentials and the CoinMarketCap catalog are set up. Reports
pass/warn/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "searchagent doctor v%s\n\n", version)
			r := &doctorReport{out: cmd.OutOrStdout()}
			runDoctor(cmd.Context(), r, online)

			fmt.Fprintf(r.out, "\nResults: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
			if r.failed > 0 {
				return fmt.Errorf("%d check(s) failed", r.failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "also ping the configured LLM providers")
	return cmd
}

func runDoctor(ctx context.Context, r *doctorReport, online bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfgPath := resolveConfigPath()
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		r.warn("Config file", fmt.Sprintf("not found at %s, using defaults and environment", cfgPath))
	} else {
		r.pass("Config file", cfgPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		r.fail("Config validation", err.Error())
		return
	}
	r.pass("Config validation", "valid")

	if cfg.Memory.Enabled {
		if lookups, err := checkMemory(ctx, cfg.Memory.DBPath); err != nil {
			r.fail("Memory database", err.Error())
		} else {
			r.pass("Memory database", fmt.Sprintf("%s (%d crypto lookups audited)", cfg.Memory.DBPath, lookups))
		}
	} else {
		r.warn("Memory database", "disabled, history is kept in process only")
	}

	factory := provider.NewFactory(cfg, logger)
	if p, err := factory.DefaultProvider(); err != nil {
		r.fail("Provider", err.Error())
	} else if online {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := p.Healthy(pingCtx); err != nil {
			r.fail("Provider: "+p.Name(), err.Error())
			if alt := factory.HealthyProvider(pingCtx); alt != nil {
				r.warn("Provider fallback", alt.Name()+" is reachable, consider general.failoverChain")
			}
		} else {
			r.pass("Provider: "+p.Name(), "reachable")
		}
		cancel()
	} else {
		r.pass("Provider: "+p.Name(), "configured")
	}

	tools, closer, err := registerTools(cfg)
	if err != nil {
		r.fail("Search tools", err.Error())
		return
	}
	defer closer()
	if names := tools.Names(); len(names) == 0 {
		r.warn("Search tools", "no tools enabled")
	} else {
		r.pass("Search tools", fmt.Sprintf("%d enabled %v", len(names), names))
	}

	if !cfg.Search.CoinMarketCap {
		return
	}
	st, err := newCryptoStack(cfg.CoinMarketCap)
	if err != nil {
		r.fail("CoinMarketCap", err.Error())
		return
	}
	defer st.close()
	status, err := st.catalog.Status(ctx)
	switch {
	case err != nil:
		r.fail("Coin catalog", err.Error())
	case !status.Exists:
		r.warn("Coin catalog", fmt.Sprintf("%s missing, downloaded on first lookup", status.Store))
	case !status.Fresh:
		r.warn("Coin catalog", fmt.Sprintf("%s stale (%s old, %d coins)", status.Store, status.Age.Round(time.Minute), status.Entries))
	default:
		r.pass("Coin catalog", fmt.Sprintf("%s fresh (%d coins)", status.Store, status.Entries))
	}
}

func checkMemory(ctx context.Context, dbPath string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return 0, fmt.Errorf("cannot create database directory: %w", err)
	}
	store, err := memory.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.ToolInvocationCount(ctx, "crypto_search")
}


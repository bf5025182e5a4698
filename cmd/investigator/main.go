// Command investigator is the CLI entry point wiring Orchestrator
// against a concrete LLM provider and filesystem tools. It is the
// external "CLI" collaborator spec.md places out of the specified
// core's scope (spec.md §1 "Out of scope") — provided here only so the
// module is runnable end to end, in the teacher's own CLI idiom:
// github.com/spf13/cobra for commands, github.com/fatih/color for
// inline status-line colorizing, github.com/charmbracelet/lipgloss for
// the report's bordered header (the same static, non-TUI lipgloss.
// NewStyle().Render usage as the teacher's own
// internal/utils/diff_formatter.go), and github.com/charmbracelet/
// glamour for the report body, matching the teacher's cmd/ package
// (cobra_cli.go's CLI struct, color definitions, and cobra.Command
// wiring).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"investigator/internal/config"
	"investigator/internal/contextmgr"
	"investigator/internal/events"
	"investigator/internal/investigator"
	"investigator/internal/llmclient"
	"investigator/internal/orchestrator"
	"investigator/internal/storage"
	"investigator/internal/synthesizer"
	"investigator/internal/tokens"
	"investigator/internal/tools"
	"investigator/internal/tools/builtin"
	"investigator/pkg/types"
)

var (
	cyan  = color.New(color.FgCyan).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()

	reportHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#8b5cf6")).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#5d1a1d")).
		Padding(0, 1)
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		storageDir string
		jsonOutput bool
	)

	root := &cobra.Command{
		Use:   "investigator [question]",
		Short: "Ask a natural-language question about the code in the current directory",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			query := args[0]
			for _, a := range args[1:] {
				query += " " + a
			}
			return runInvestigation(cmd, query, storageDir, jsonOutput)
		},
	}

	home, _ := os.UserHomeDir()
	defaultStorage := filepath.Join(home, ".investigator")

	root.PersistentFlags().StringVar(&storageDir, "storage", defaultStorage, "base directory for session storage")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the buffered event stream and result as JSON instead of rendering markdown")
	root.PersistentFlags().Int("max-iterations", 0, "override agent.maxIterations (0 = use config default)")
	root.PersistentFlags().Int("stuck-threshold", 0, "override agent.stuckThreshold (0 = use config default)")

	root.AddCommand(newSessionsCommand(&storageDir))
	return root
}

// runInvestigation wires every collaborator and runs one Orchestrator
// pass for query, exiting 0 on success and 1 on a failed run, matching
// spec.md §6 "Exit codes are set by the CLI collaborator".
func runInvestigation(cmd *cobra.Command, query, storageDir string, jsonOutput bool) error {
	configManager, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := configManager.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	cfg := configManager.Resolve()
	if n, _ := cmd.Flags().GetInt("max-iterations"); n > 0 {
		cfg.Agent.MaxIterations = n
	}
	if n, _ := cmd.Flags().GetInt("stuck-threshold"); n > 0 {
		cfg.Agent.StuckThreshold = n
	}

	logger := newLogger(jsonOutput)

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	bus := events.New()
	bus.SetBuffering(jsonOutput)
	if !jsonOutput {
		bus.Subscribe(newProgressPresenter(os.Stdout))
	}

	store := storage.New(storageDir)
	estimator := tokens.NewEstimator()
	ctxMgr := contextmgr.NewManager(store, estimator, bus, cfg.ContextManagerConfig())
	if _, err := ctxMgr.InitSession(query, workDir); err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	registry := newRegistry(workDir, cfg.Tools)

	if cfg.LLM.APIKey == "" {
		logger.Warn().Msg("llm.apiKey is not set; completion requests will fail with an auth error")
	}
	llmClient := llmclient.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)

	inv := investigator.New(ctxMgr, llmClient, registry, bus, estimator, cfg.InvestigatorConfig())
	synth := synthesizer.New(ctxMgr, llmClient, configManager.SynthesizerConfig())
	orch := orchestrator.New(inv, synth, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		inv.Abort()
		cancel()
	}()

	result := orch.Run(ctx, query)

	if jsonOutput {
		if err := printJSON(result, bus.Drain()); err != nil {
			return err
		}
	} else {
		printReport(result)
	}
	if !result.Success {
		return fmt.Errorf("run failed: %s", result.Error)
	}
	return nil
}

func newRegistry(workDir string, toolsCfg config.ToolsConfig) *tools.Registry {
	registry := tools.NewRegistry()
	if len(toolsCfg.EnabledTools) > 0 {
		registry.SetEnabledTools(toolsCfg.EnabledTools)
	}
	if len(toolsCfg.DisabledTools) > 0 {
		registry.SetDisabledTools(toolsCfg.DisabledTools)
	}
	registry.Register(builtin.NewReadFileTool(workDir))
	registry.Register(builtin.NewListDirTool(workDir))
	registry.Register(builtin.NewRipgrepTool(workDir))
	registry.Register(builtin.NewThinkTool())
	return registry
}

func newLogger(jsonOutput bool) zerolog.Logger {
	if jsonOutput || !isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).With().Timestamp().Logger()
}

// newProgressPresenter renders lifecycle events to out as short
// colorized status lines while a run is in progress.
func newProgressPresenter(out *os.File) events.Subscriber {
	return func(evt types.Event) {
		switch evt.Type {
		case types.EventIterationStart:
			fmt.Fprintf(out, "%s iteration %v\n", gray("▸"), evt.Payload["iteration"])
		case types.EventToolCall:
			fmt.Fprintf(out, "%s %s\n", cyan("tool"), evt.Payload["name"])
		case types.EventCompression:
			fmt.Fprintf(out, "%s context compressed\n", gray("·"))
		case types.EventSynthesisStart:
			fmt.Fprintf(out, "%s synthesizing report\n", cyan("▸"))
		case types.EventOrchestratorComplete:
			fmt.Fprintf(out, "%s done\n", green("✓"))
		case types.EventError:
			fmt.Fprintf(out, "%s %v\n", red("error"), evt.Payload["error"])
		}
	}
}

func printReport(result *orchestrator.Result) {
	if !result.Success {
		fmt.Fprintln(os.Stderr, red("investigation failed: "+result.Error))
		return
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(reportHeaderStyle.Render("Investigation report"))
		rendered, err := glamour.Render(result.Result, "dark")
		if err == nil {
			fmt.Print(rendered)
			return
		}
	}
	fmt.Println(result.Result)
}

func printJSON(result *orchestrator.Result, buffered []types.Event) error {
	out := map[string]interface{}{
		"result": result,
		"events": buffered,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// newSessionsCommand adds "investigator sessions list", a supplemental
// feature in the spirit of the teacher's own "-ls" flag (cmd/main.go),
// reading Storage's stable on-disk session.json layout.
func newSessionsCommand(storageDir *string) *cobra.Command {
	sessions := &cobra.Command{Use: "sessions", Short: "Inspect saved sessions"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved session ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(filepath.Join(*storageDir, "sessions"))
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("no sessions found")
					return nil
				}
				return err
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				printSessionSummary(filepath.Join(*storageDir, "sessions", e.Name()))
			}
			return nil
		},
	}
	sessions.AddCommand(list)
	return sessions
}

func printSessionSummary(sessionDir string) {
	data, err := os.ReadFile(filepath.Join(sessionDir, "session.json"))
	if err != nil {
		fmt.Printf("%s  %s\n", filepath.Base(sessionDir), gray("(unreadable)"))
		return
	}
	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		fmt.Printf("%s  %s\n", filepath.Base(sessionDir), gray("(corrupt)"))
		return
	}
	fmt.Printf("%s  %-60s  %s\n", sess.ID, truncate(sess.Query, 60), sess.StartedAt.Format(time.RFC3339))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

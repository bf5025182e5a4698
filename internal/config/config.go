// Package config loads the core's recognized configuration options
// (spec.md §6): agent.*, budget.*, tools.*, plus the LLM provider
// settings the CLI collaborator needs to construct a concrete
// llmclient.Client. Grounded on the teacher's internal/config/manager.go
// (file location, env var convention), upgraded from hand-rolled
// os.UserHomeDir + encoding/json persistence to github.com/spf13/viper +
// github.com/spf13/pflag — both already first-class dependencies of the
// teacher's own go.mod for its TUI settings layer, reused here for the
// investigator's own config (see DESIGN.md).
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"investigator/internal/contextmgr"
	"investigator/internal/investigator"
	"investigator/internal/synthesizer"
	"investigator/pkg/types"
)

// envPrefix is the prefix viper uses for environment variable overrides,
// e.g. INVESTIGATOR_AGENT_MAXITERATIONS.
const envPrefix = "INVESTIGATOR"

// Config is the fully resolved, recognized configuration (spec.md §6
// "Configuration (recognized options)").
type Config struct {
	Agent  AgentConfig
	Budget types.BudgetConfig
	Tools  ToolsConfig
	LLM    LLMConfig
}

// AgentConfig is agent.* (spec.md §6).
type AgentConfig struct {
	MaxIterations   int
	StuckThreshold  int
	EnableThinking  bool
	ThinkingBudget  int
}

// ToolsConfig is tools.* (spec.md §6).
type ToolsConfig struct {
	EnabledTools  []string
	DisabledTools []string
}

// LLMConfig carries the provider connection details the CLI
// collaborator needs; spec.md places the concrete provider client out
// of the core's scope, so these fields exist only to construct one.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Manager owns a viper instance bound to the recognized keys and
// produces a resolved Config.
type Manager struct {
	v *viper.Viper
}

// NewManager returns a Manager with defaults set, config file search
// paths registered ("$HOME/investigator.yaml", "./investigator.yaml"),
// and INVESTIGATOR_-prefixed environment overrides enabled. It does not
// error if no config file is found — defaults and env vars still apply.
func NewManager() (*Manager, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("investigator")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	return &Manager{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	defaultAgent := investigator.DefaultConfig()
	defaultBudget := types.DefaultBudgetConfig()

	v.SetDefault("agent.maxIterations", defaultAgent.MaxIterations)
	v.SetDefault("agent.stuckThreshold", defaultAgent.StuckThreshold)
	v.SetDefault("agent.enableThinking", true)
	v.SetDefault("agent.thinkingBudget", 0)

	v.SetDefault("budget.contextWindow", defaultBudget.ContextWindow)
	v.SetDefault("budget.reservedForSynthesis", defaultBudget.ReservedForSynthesis)
	v.SetDefault("budget.reservedForRecalls", defaultBudget.ReservedForRecalls)
	v.SetDefault("budget.reservedForNextSteps", defaultBudget.ReservedForNextSteps)

	v.SetDefault("tools.enabledTools", []string(nil))
	v.SetDefault("tools.disabledTools", []string(nil))

	v.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.model", "gpt-4o-mini")

	v.SetDefault("synthesizer.maxRecallIterations", 3)
}

// BindPFlags binds a pflag.FlagSet's flags (cmd/investigator's cobra
// flags) over the defaults and config file, so CLI flags take
// precedence (spec.md §4.10 "bound via viper.BindPFlag").
func (m *Manager) BindPFlags(flags *pflag.FlagSet) error {
	return m.v.BindPFlags(flags)
}

// Resolve reads back the fully merged configuration.
func (m *Manager) Resolve() Config {
	return Config{
		Agent: AgentConfig{
			MaxIterations:  m.v.GetInt("agent.maxIterations"),
			StuckThreshold: m.v.GetInt("agent.stuckThreshold"),
			EnableThinking: m.v.GetBool("agent.enableThinking"),
			ThinkingBudget: m.v.GetInt("agent.thinkingBudget"),
		},
		Budget: types.BudgetConfig{
			ContextWindow:        m.v.GetInt("budget.contextWindow"),
			ReservedForSynthesis: m.v.GetInt("budget.reservedForSynthesis"),
			ReservedForRecalls:   m.v.GetInt("budget.reservedForRecalls"),
			ReservedForNextSteps: m.v.GetInt("budget.reservedForNextSteps"),
		},
		Tools: ToolsConfig{
			EnabledTools:  m.v.GetStringSlice("tools.enabledTools"),
			DisabledTools: m.v.GetStringSlice("tools.disabledTools"),
		},
		LLM: LLMConfig{
			BaseURL: m.v.GetString("llm.baseURL"),
			APIKey:  m.v.GetString("llm.apiKey"),
			Model:   m.v.GetString("llm.model"),
		},
	}
}

// InvestigatorConfig projects Config into investigator.Config.
func (c Config) InvestigatorConfig() investigator.Config {
	return investigator.Config{
		MaxIterations:  c.Agent.MaxIterations,
		StuckThreshold: c.Agent.StuckThreshold,
	}
}

// ContextManagerConfig projects Config into contextmgr.Config.
func (c Config) ContextManagerConfig() contextmgr.Config {
	cfg := contextmgr.DefaultConfig()
	cfg.Budget = c.Budget
	return cfg
}

// SynthesizerConfig projects Config into synthesizer.Config.
func (m *Manager) SynthesizerConfig() synthesizer.Config {
	return synthesizer.Config{MaxRecallIterations: m.v.GetInt("synthesizer.maxRecallIterations")}
}

// Package orchestrator implements the two-phase pipeline of spec.md
// §4.7: run the Investigator to gather findings, then the Synthesizer
// to turn them into a final report, with a best-effort fallback to the
// Investigator's raw findings if synthesis itself fails. Grounded on
// the teacher's top-level ReactAgent.ProcessMessage/SolveTask wiring
// (internal/agent/react_agent.go), generalized from a single-phase
// think/act/observe loop into the spec's explicit investigate-then-
// synthesize pipeline.
package orchestrator

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"investigator/internal/events"
	"investigator/internal/investigator"
	"investigator/internal/synthesizer"
	"investigator/pkg/types"
)

// Result is the top-level outcome of one Run, matching spec.md §4.7's
// contract.
type Result struct {
	Success          bool
	Result           string
	Iterations       int
	TotalTokensUsed  int
	Decisions        []types.Decision
	Error            string
}

// Orchestrator runs one Investigator phase followed by one Synthesizer
// phase against a shared event bus.
type Orchestrator struct {
	inv    *investigator.Investigator
	synth  *synthesizer.Synthesizer
	bus    *events.Bus
	logger zerolog.Logger
}

// New wires an Orchestrator from its two phase collaborators.
func New(inv *investigator.Investigator, synth *synthesizer.Synthesizer, bus *events.Bus) *Orchestrator {
	return &Orchestrator{inv: inv, synth: synth, bus: bus, logger: log.With().Str("component", "orchestrator").Logger()}
}

// Run executes the investigate -> synthesize pipeline for query
// (spec.md §4.7).
func (o *Orchestrator) Run(ctx context.Context, query string) *Result {
	o.bus.Emit(types.EventOrchestratorStart, map[string]interface{}{"query": query})
	o.bus.Emit(types.EventPhaseStart, map[string]interface{}{"phase": "investigation"})

	invResult := o.inv.Run(ctx, query)

	o.bus.Emit(types.EventPhaseEnd, map[string]interface{}{"phase": "investigation", "iterations": invResult.Iterations})

	if !invResult.Success {
		errMsg := "Aborted"
		if invResult.Error != nil {
			errMsg = invResult.Error.Error()
		}
		o.bus.Emit(types.EventOrchestratorError, map[string]interface{}{"error": errMsg})
		return &Result{Success: false, Error: errMsg, Iterations: invResult.Iterations, Decisions: invResult.Decisions}
	}

	o.bus.Emit(types.EventPhaseStart, map[string]interface{}{"phase": "synthesis"})
	o.bus.Emit(types.EventSynthesisStart, nil)

	synthResult := o.synth.Run(ctx, query, invResult.KeyFiles)

	finalResult := invResult.Findings
	totalTokens := synthResult.TotalTokens
	if synthResult.Error != nil {
		o.bus.Emit(types.EventSynthesisError, map[string]interface{}{"error": synthResult.Error.Error()})
		o.logger.Warn().Err(synthResult.Error).Msg("synthesis failed, falling back to raw investigator findings")
	} else {
		finalResult = synthResult.Report
		o.bus.Emit(types.EventSynthesisComplete, map[string]interface{}{"tokens": synthResult.TotalTokens})
	}

	o.bus.Emit(types.EventPhaseEnd, map[string]interface{}{"phase": "synthesis"})

	result := &Result{
		Success:         true,
		Result:          finalResult,
		Iterations:      invResult.Iterations,
		TotalTokensUsed: totalTokens,
		Decisions:       invResult.Decisions,
	}

	o.bus.Emit(types.EventOrchestratorComplete, map[string]interface{}{"success": true, "iterations": result.Iterations})
	o.bus.Emit(types.EventDone, map[string]interface{}{"result": result.Result})

	return result
}

// Package tokens provides a cheap, deterministic token-count estimate.
// spec.md explicitly allows estimation over exact provider token counts;
// this mirrors the teacher's chars-per-token heuristic rather than
// shipping a tokenizer dependency, since no pack example wires a real
// BPE tokenizer for this concern (see DESIGN.md).
package tokens

// Estimator maps text to an integer token estimate.
type Estimator struct {
	charsPerToken int
	overhead      int
}

// NewEstimator returns an Estimator using the teacher's calibration:
// roughly three characters per token plus a small per-message overhead
// for role/metadata framing that the model also pays for.
func NewEstimator() *Estimator {
	return &Estimator{charsPerToken: 3, overhead: 4}
}

// Estimate returns the token estimate for a single piece of text, with
// no message-framing overhead applied. Context manager callers that
// need the framing overhead should use EstimateMessage instead.
func (e *Estimator) Estimate(content string) int {
	if len(content) == 0 {
		return 0
	}
	n := (len(content) + e.charsPerToken - 1) / e.charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateMessage estimates a role+content pair, including the small
// per-message overhead the teacher's estimator charges for framing.
func (e *Estimator) EstimateMessage(content string) int {
	return e.Estimate(content) + e.overhead
}

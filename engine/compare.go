package engine

import (
	"time"

	"github.com/LynnColeArt/gudaflow"
)

// Outcome is the result of running two engines from identical inputs.
type Outcome struct {
	Reference *Buffers
	Candidate *Buffers
	Durations [2]time.Duration
	Verify    gudaflow.VerifyResult
}

// Compare runs ref and cand on independent copies of inputs and verifies
// the candidate's C against the reference's. An engine failure is returned
// as an error; a numerical mismatch is reported in Outcome.Verify.
func Compare(ref, cand Engine, inputs *Buffers, tolerance float32) (*Outcome, error) {
	out := &Outcome{
		Reference: inputs.Clone(),
		Candidate: inputs.Clone(),
	}

	for i, run := range []struct {
		e    Engine
		bufs *Buffers
	}{{ref, out.Reference}, {cand, out.Candidate}} {
		start := time.Now()
		if err := run.e.Run(run.bufs); err != nil {
			return out, err
		}
		out.Durations[i] = time.Since(start)
	}

	out.Verify = gudaflow.Verify(out.Reference.C.Data, out.Candidate.C.Data, tolerance)
	gudaflow.Logger().Info("verified", "reference", ref.Name(), "candidate", cand.Name(),
		"ok", out.Verify.OK, "mismatches", out.Verify.MismatchCount)
	return out, nil
}

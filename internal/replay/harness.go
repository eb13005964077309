package replay

import (
	"github.com/danielpatrickdp/policy-reforms/internal/check"
	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/reform"
)

// #region types
// Step is a single reform application to replay.
type Step struct {
	Name     string
	File     string
	Document *reform.Document
}

// Config bundles apply and check configs for a replay run.
type Config struct {
	ApplyConfig reform.ApplyConfig
	CheckConfig check.Config
}

// DefaultConfig returns defaults for both pipeline stages.
func DefaultConfig() Config {
	return Config{
		ApplyConfig: reform.DefaultApplyConfig(),
		CheckConfig: check.DefaultConfig(),
	}
}

// Result captures the outcome of replaying one step through the full
// validate → apply → check pipeline.
type Result struct {
	Name   string
	Action string // "commit" | "no_op" | "reject" | "check_rollback"
	Reason string

	ApplyDecision *reform.Decision
	ApplyMetrics  *reform.Metrics
	CheckResult   *check.Result

	// Final version after this step (parent's if rejected/rolled back).
	FinalVersionID string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps int
	Commits    int
	NoOps      int
	Rejects    int
	Rollbacks  int
}

// #endregion types

// #region replay

// Replay runs each step against an evolving snapshot, starting from the
// registry's baseline expansion. Rejected or rolled-back steps leave
// the snapshot unchanged, exactly as the apply CLI would.
func Replay(reg *policy.Registry, f *growth.Factors, steps []Step, cfg Config) ([]Result, policy.Snapshot, error) {
	snap, err := policy.BaselineSnapshot(reg, f)
	if err != nil {
		return nil, policy.Snapshot{}, err
	}

	harness := check.NewHarness(cfg.CheckConfig)
	results := make([]Result, 0, len(steps))

	for _, step := range steps {
		res := Result{Name: step.Name, FinalVersionID: snap.VersionID}

		applyRes, err := reform.Apply(snap, step.Document, reg, f, cfg.ApplyConfig)
		if err != nil {
			res.Action = "reject"
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}
		res.ApplyDecision = &applyRes.Decision
		res.ApplyMetrics = &applyRes.Metrics

		if applyRes.Decision.Action == "no_op" {
			res.Action = "no_op"
			res.Reason = applyRes.Decision.Reason
			results = append(results, res)
			continue
		}

		checkRes := harness.Run(applyRes.NewSnapshot, reg)
		res.CheckResult = &checkRes
		if !checkRes.Passed {
			res.Action = "check_rollback"
			res.Reason = checkRes.Reason
			results = append(results, res)
			continue
		}

		snap = applyRes.NewSnapshot
		res.Action = "commit"
		res.Reason = applyRes.Decision.Reason
		res.FinalVersionID = snap.VersionID
		results = append(results, res)
	}

	return results, snap, nil
}

// Summarize aggregates replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalSteps: len(results)}
	for _, r := range results {
		switch r.Action {
		case "commit":
			s.Commits++
		case "no_op":
			s.NoOps++
		case "reject":
			s.Rejects++
		case "check_rollback":
			s.Rollbacks++
		}
	}
	return s
}

// #endregion replay

// #region compare

// Comparison pairs one replayed step with its reference decision.
type Comparison struct {
	Name     string
	Expected string // "-" when no reference decision exists
	Replayed string
	Match    string // "OK" | "DIFF" | "-" (uncompared)
}

// Compare matches replayed results against reference decisions
// (fixture expectations or a recorded trail). Every result gets a row:
// steps beyond the reference list stay in the output uncompared rather
// than disappearing from the report.
func Compare(results []Result, expected []string) (rows []Comparison, matches, compared int) {
	rows = make([]Comparison, len(results))
	for i, res := range results {
		c := Comparison{Name: res.Name, Expected: "-", Replayed: res.Action, Match: "-"}
		if i < len(expected) {
			c.Expected = expected[i]
			compared++
			if actionsMatch(c.Expected, res.Action) {
				c.Match = "OK"
				matches++
			} else {
				c.Match = "DIFF"
			}
		}
		rows[i] = c
	}
	return rows, matches, compared
}

// actionsMatch compares a reference action against a replayed one. A
// recorded "reject" matches either a validation reject or a check
// rollback.
func actionsMatch(expected, replayed string) bool {
	if expected == replayed {
		return true
	}
	if expected == "reject" && replayed == "check_rollback" {
		return true
	}
	return false
}

// #endregion compare

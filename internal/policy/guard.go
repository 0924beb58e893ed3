// Package policy evaluates rego rules before a tool runs. Each tool may carry
// its own module whose `data.policy.decide` rule returns a decision object.
package policy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/rego"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type DecisionStatus string

const (
	Allow               DecisionStatus = "ALLOW"
	AllowWithConditions DecisionStatus = "ALLOW_WITH_CONDITIONS"
	Blocked             DecisionStatus = "BLOCKED"
	NeedsInput          DecisionStatus = "NEEDS_INPUT"
)

// Wildcard names the rule applied to tools without their own.
const Wildcard = "*"

type Decision struct {
	Tool    string         `json:"tool"`
	Status  DecisionStatus `json:"status"`
	Reasons any            `json:"reasons,omitempty"`
	Needs   any            `json:"needs,omitempty"`
}

// Permitted reports whether the tool may run.
func (d Decision) Permitted() bool {
	return d.Status == Allow || d.Status == AllowWithConditions
}

// Input is the document bound to `input` during evaluation.
type Input struct {
	Tool    string         `json:"tool"`
	Actor   string         `json:"actor"`
	Mutates bool           `json:"mutates"`
	Inputs  map[string]any `json:"inputs"`
}

type fileRule struct {
	Rego     string `yaml:"rego"`
	RegoFile string `yaml:"rego_file"`
}

type file struct {
	// Default is "allow" or "block" for tools with no rule.
	Default string              `yaml:"default"`
	Tools   map[string]fileRule `yaml:"tools"`
}

// Guard is immutable after Load and safe for concurrent use.
type Guard struct {
	log          *zap.SugaredLogger
	rules        map[string]rego.PreparedEvalQuery
	blockDefault bool
}

// AllowAll returns a guard with no rules.
func AllowAll(log *zap.SugaredLogger) *Guard {
	return &Guard{log: log.Named("policy"), rules: map[string]rego.PreparedEvalQuery{}}
}

// Load reads the policy file at path. An empty path yields AllowAll.
func Load(ctx context.Context, path string, log *zap.SugaredLogger) (*Guard, error) {
	if strings.TrimSpace(path) == "" {
		return AllowAll(log), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(ctx, b, log)
}

// Parse compiles every rule in a yaml policy document.
func Parse(ctx context.Context, doc []byte, log *zap.SugaredLogger) (*Guard, error) {
	var f file
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("policy: yaml parse: %w", err)
	}
	g := AllowAll(log)
	switch strings.ToLower(strings.TrimSpace(f.Default)) {
	case "", "allow":
	case "block":
		g.blockDefault = true
	default:
		return nil, fmt.Errorf("policy: default must be allow or block, got %q", f.Default)
	}
	var errs []error
	for tool, r := range f.Tools {
		mod := r.Rego
		if r.RegoFile != "" {
			b, err := os.ReadFile(r.RegoFile)
			if err != nil {
				errs = append(errs, fmt.Errorf("policy %s: %w", tool, err))
				continue
			}
			mod = string(b)
		}
		if strings.TrimSpace(mod) == "" {
			errs = append(errs, fmt.Errorf("policy %s: empty module", tool))
			continue
		}
		pq, err := rego.New(
			rego.Query("data.policy.decide"),
			rego.Module(tool+".rego", mod),
		).PrepareForEval(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("policy %s: %w", tool, err))
			continue
		}
		g.rules[tool] = pq
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	g.log.Infow("policy loaded", "rules", len(g.rules), "default_block", g.blockDefault)
	return g, nil
}

// Evaluate decides whether in.Tool may run. Rule failures block the call.
func (g *Guard) Evaluate(ctx context.Context, in Input) Decision {
	pq, ok := g.rules[in.Tool]
	if !ok {
		pq, ok = g.rules[Wildcard]
	}
	if !ok {
		if g.blockDefault {
			return Decision{Tool: in.Tool, Status: Blocked, Reasons: []string{"no_policy"}}
		}
		return Decision{Tool: in.Tool, Status: Allow}
	}
	rs, err := pq.Eval(ctx, rego.EvalInput(in))
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		g.log.Warnw("policy evaluation failed", "tool", in.Tool, "err", err)
		return Decision{Tool: in.Tool, Status: Blocked, Reasons: []string{"policy_error"}}
	}
	dec := Decision{Tool: in.Tool}
	var m map[string]any
	switch v := rs[0].Expressions[0].Value.(type) {
	case map[string]any:
		m = v
	case bool:
		if v {
			dec.Status = Allow
		} else {
			dec.Status, dec.Reasons = Blocked, []string{"denied"}
		}
		return dec
	default:
		g.log.Warnw("policy returned an unexpected value", "tool", in.Tool, "type", fmt.Sprintf("%T", v))
		return Decision{Tool: in.Tool, Status: Blocked, Reasons: []string{"policy_error"}}
	}
	switch s, _ := m["status"].(string); DecisionStatus(s) {
	case Allow, AllowWithConditions, NeedsInput:
		dec.Status = DecisionStatus(s)
	default:
		dec.Status = Blocked
	}
	dec.Reasons = m["reasons"]
	dec.Needs = m["needs"]
	return dec
}

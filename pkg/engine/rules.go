package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/vulncorr/pkg/logger"
	"github.com/user/vulncorr/pkg/record"
)

var (
	ErrMalformedRule         = errors.New("malformed rule")
	ErrUnknownOperator       = errors.New("unknown operator")
	ErrUnsupportedRuleFormat = errors.New("unsupported rule file format")
)

// Target names the collection a rule filters.
type Target string

const (
	TargetServer        Target = "server"
	TargetVulnerability Target = "vulnerability"
)

// Operator is a rule comparison. Comparisons are on strings, so "lt" and
// "gt" order lexicographically: "10" < "9".
type Operator string

const (
	OpEqual   Operator = "eq"
	OpLess    Operator = "lt"
	OpGreater Operator = "gt"
)

func (o Operator) valid() bool {
	switch o {
	case OpEqual, OpLess, OpGreater:
		return true
	}
	return false
}

// Rule is a single (field, operator, value) constraint on one collection.
type Rule struct {
	Target   Target   `yaml:"target"`
	Field    string   `yaml:"field"`
	Operator Operator `yaml:"op"`
	Value    string   `yaml:"value"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s %q", r.Target, r.Field, r.Operator, r.Value)
}

// Keep reports whether a field value satisfies the rule.
func (r Rule) Keep(value string) bool {
	switch r.Operator {
	case OpEqual:
		return value == r.Value
	case OpLess:
		return value < r.Value
	case OpGreater:
		return value > r.Value
	}
	return false
}

// Filter returns the records that satisfy the rule, in their original order.
// The rule's field is coerced to its string form on every record that has
// it, including records that are dropped. Records without the field fail.
func (r Rule) Filter(records []record.Record) []record.Record {
	kept := make([]record.Record, 0, len(records))
	for _, rec := range records {
		value, ok := rec.Coerce(r.Field)
		if !ok {
			continue
		}
		if r.Keep(value) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (r Rule) validate() error {
	switch r.Target {
	case TargetServer, TargetVulnerability:
	default:
		// unknown targets are ignored when rules are applied
		return nil
	}
	if r.Field == "" {
		return fmt.Errorf("%w: %s rule has no field", ErrMalformedRule, r.Target)
	}
	if !r.Operator.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, r.Operator)
	}
	return nil
}

// ApplyRules filters servers and vulnerabilities with every rule targeting
// them, in rule order. Each rule narrows what the previous ones kept.
func ApplyRules(rules []Rule, servers, vulnerabilities []record.Record) ([]record.Record, []record.Record) {
	for _, rule := range rules {
		switch rule.Target {
		case TargetServer:
			before := len(servers)
			servers = rule.Filter(servers)
			logger.Debugf("rule %s kept %d of %d servers", rule, len(servers), before)
		case TargetVulnerability:
			before := len(vulnerabilities)
			vulnerabilities = rule.Filter(vulnerabilities)
			logger.Debugf("rule %s kept %d of %d vulnerabilities", rule, len(vulnerabilities), before)
		default:
			logger.Debugf("ignoring rule for unknown target %q", rule.Target)
		}
	}
	return servers, vulnerabilities
}

// ParseRulesCSV reads rules from comma separated rows of
// target,field,operator,value. Blank lines are skipped. Values compare
// against the string form of the record field, so booleans are written
// True/False and null as None: "server,active,eq,True".
func ParseRulesCSV(r io.Reader) ([]Rule, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rules []Rule
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		line++

		rule := Rule{Target: Target(row[0])}
		if rule.Target == TargetServer || rule.Target == TargetVulnerability {
			if len(row) < 4 {
				return nil, fmt.Errorf("%w: row %d has %d columns, want 4", ErrMalformedRule, line, len(row))
			}
		}
		if len(row) >= 4 {
			rule.Field = row[1]
			rule.Operator = Operator(row[2])
			rule.Value = row[3]
		}
		if err := rule.validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseRulesYAML reads rules from a YAML list of {target, field, op, value}.
func ParseRulesYAML(r io.Reader) ([]Rule, error) {
	var rules []Rule
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for i, rule := range rules {
		if err := rule.validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return rules, nil
}

// LoadRules reads a rule file, choosing the parser by extension.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []Rule
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", "":
		rules, err = ParseRulesCSV(f)
	case ".yaml", ".yml":
		rules, err = ParseRulesYAML(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRuleFormat, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	return rules, nil
}

// RulesFor returns the rules targeting one collection, in order.
func RulesFor(rules []Rule, target Target) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Target == target {
			out = append(out, r)
		}
	}
	return out
}

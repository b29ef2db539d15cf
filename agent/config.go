package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/rules"
)

// Stage types.
const (
	StageSide      = "side"
	StageUnit      = "unit"
	StageCandidate = "candidate"
	StageRecruit   = "recruit"
)

// DefaultMaxCycles bounds every stage loop and unit loop formula.
const DefaultMaxCycles = 1000

// Source is a formula read from the configuration, with the line it
// starts on.
type Source struct {
	Text string
	Line int
}

func (s *Source) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: formula must be a string", n.Line)
	}
	s.Text = n.Value
	s.Line = n.Line
	// Block scalars start on the line after the indicator.
	if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		s.Line++
	}
	return nil
}

func (s Source) IsZero() bool { return strings.TrimSpace(s.Text) == "" }

func (s Source) in(file string) formula.Source {
	return formula.Source{Text: s.Text, Filename: file, Line: s.Line}
}

type StageConfig struct {
	Type string `yaml:"type"`
	When string `yaml:"when"`
}

type FunctionConfig struct {
	Name         string `yaml:"name"`
	Inputs       string `yaml:"inputs"`
	Formula      Source `yaml:"formula"`
	Precondition Source `yaml:"precondition"`
}

type CandidateConfig struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Evaluation Source            `yaml:"evaluation"`
	Action     Source            `yaml:"action"`
	Filter     map[string]Source `yaml:"filter"`
}

// UnitConfig overrides the formulas of one unit, matched by id, or of
// every unit of a type.
type UnitConfig struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Formula     Source `yaml:"formula"`
	LoopFormula Source `yaml:"loop_formula"`
	Priority    Source `yaml:"priority"`
}

// Config is one AI's configuration.
type Config struct {
	Side             int               `yaml:"side"`
	Seed             uint64            `yaml:"seed"`
	MaxCycles        int               `yaml:"max_cycles"`
	Stages           []StageConfig     `yaml:"stages"`
	Move             Source            `yaml:"move"`
	Functions        []FunctionConfig  `yaml:"functions"`
	CandidateActions []CandidateConfig `yaml:"candidate_actions"`
	Units            []UnitConfig      `yaml:"units"`
	Vars             string            `yaml:"vars"`
	Doctrine         *rules.Doctrine   `yaml:"doctrine"`

	// File is the name formula diagnostics refer to.
	File string `yaml:"-"`
}

// DefaultConfig plays side 1 with the balanced doctrine.
func DefaultConfig() *Config {
	c := &Config{Side: 1}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Side == 0 {
		c.Side = 1
	}
	if c.MaxCycles <= 0 {
		c.MaxCycles = DefaultMaxCycles
	}
	if len(c.Stages) == 0 {
		c.Stages = []StageConfig{{Type: StageCandidate}, {Type: StageSide}, {Type: StageUnit}}
	}
	if c.Doctrine == nil {
		d := rules.DefaultDoctrine()
		c.Doctrine = &d
	}
	c.Doctrine.Validate()
	if c.File == "" {
		c.File = formula.InlineFilename
	}
}

// SideFormula is the configured side formula, or the doctrine's recruit
// formula when none is set.
func (c *Config) SideFormula() formula.Source {
	if c.Move.IsZero() {
		return formula.Source{Text: rules.RecruitFormula(*c.Doctrine), Filename: "<doctrine>"}
	}
	return c.Move.in(c.File)
}

// Candidates returns the configured candidate actions, or the ones
// generated from the doctrine when none are configured.
func (c *Config) Candidates() []rules.CandidateSpec {
	if len(c.CandidateActions) == 0 {
		specs := rules.CompileDoctrine(*c.Doctrine)
		for i := range specs {
			specs[i].Evaluation.Filename = "<doctrine>"
			specs[i].Action.Filename = "<doctrine>"
		}
		return specs
	}
	specs := make([]rules.CandidateSpec, 0, len(c.CandidateActions))
	for _, ca := range c.CandidateActions {
		spec := rules.CandidateSpec{
			Name:       ca.Name,
			Type:       ca.Type,
			Evaluation: ca.Evaluation.in(c.File),
			Action:     ca.Action.in(c.File),
		}
		if len(ca.Filter) > 0 {
			spec.Filters = make(map[string]formula.Source, len(ca.Filter))
			for name, f := range ca.Filter {
				spec.Filters[name] = f.in(c.File)
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

// unitConfig finds the override for a unit, by id first.
func (c *Config) unitConfig(id, typ string) (UnitConfig, bool) {
	for _, u := range c.Units {
		if u.ID != "" && u.ID == id {
			return u, true
		}
	}
	for _, u := range c.Units {
		if u.ID == "" && u.Type != "" && strings.EqualFold(u.Type, typ) {
			return u, true
		}
	}
	return UnitConfig{}, false
}

// ParseConfig validates and decodes a YAML configuration. name is used in
// diagnostics.
func ParseConfig(data []byte, name string) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if errs := validateConfig(doc); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.String()
		}
		return nil, fmt.Errorf("%s: invalid configuration: %s", name, strings.Join(msgs, "; "))
	}

	d := rules.DefaultDoctrine()
	cfg := Config{Doctrine: &d}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	cfg.File = name
	cfg.applyDefaults()
	for _, st := range cfg.Stages {
		if _, err := rules.CompileGate(st.When); err != nil {
			return nil, fmt.Errorf("%s: stage %s: %w", name, st.Type, err)
		}
	}
	return &cfg, nil
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data, path)
}

// jsonDoc converts a decoded YAML document into the plain JSON shape the
// schema validator expects.
func jsonDoc(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Package catalog loads the visa catalog (visa classes, industry policies, and
// declarative CEL rules) and turns it into a frozen rule registry.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/evaluator"
	"visamatch/internal/eligibility/rules"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// IndustryDefinition attaches one outcome to every posting in a category.
type IndustryDefinition struct {
	Category  string   `json:"category" koanf:"category"`
	Outcome   string   `json:"outcome" koanf:"outcome"`
	Reason    string   `json:"reason" koanf:"reason"`
	Documents []string `json:"documents,omitempty" koanf:"documents"`
	Exempt    []string `json:"exempt,omitempty" koanf:"exempt"`
}

// Catalog is the decoded catalog file.
type Catalog struct {
	Version    string                `json:"version" koanf:"version"`
	Visas      []rules.VisaClass     `json:"visas" koanf:"visas"`
	Industries []IndustryDefinition  `json:"industries" koanf:"industries"`
	Rules      []rules.CELDefinition `json:"rules" koanf:"rules"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return decode(k)
}

// Parse decodes a YAML catalog from memory.
func Parse(data []byte) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return decode(k)
}

// LoadOrDefault loads path, or the embedded catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return Load(path)
}

func decode(k *koanf.Koanf) (*Catalog, error) {
	var c Catalog
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the parts of the catalog that the registry cannot. Rule
// expressions are checked when the registry is built.
func (c *Catalog) Validate() error {
	if _, err := semver.StrictNewVersion(c.Version); err != nil {
		return fmt.Errorf("catalog version %q is not a semantic version: %w", c.Version, err)
	}
	if len(c.Visas) == 0 {
		return errors.New("catalog lists no visas")
	}

	known := make(map[eligibility.VisaCode]struct{}, len(c.Visas))
	for _, v := range c.Visas {
		code, ok := eligibility.ParseVisaCode(string(v.Code))
		if !ok {
			return fmt.Errorf("visa code %q is malformed", v.Code)
		}
		if v.HourCapNoteMargin < 0 {
			return fmt.Errorf("visa %s: hour_cap_note_margin must not be negative", code)
		}
		known[code] = struct{}{}
	}

	seen := make(map[string]struct{}, len(c.Industries))
	for _, ind := range c.Industries {
		category := eligibility.NormalizeIndustry(ind.Category)
		if category == "" {
			return errors.New("industry category is required")
		}
		if _, dup := seen[category]; dup {
			return fmt.Errorf("industry %s is listed twice", category)
		}
		seen[category] = struct{}{}
		if _, err := industryOutcome(ind.Outcome); err != nil {
			return fmt.Errorf("industry %s: %w", category, err)
		}
		if strings.TrimSpace(ind.Reason) == "" {
			return fmt.Errorf("industry %s: reason is required", category)
		}
		if err := checkKnown(known, ind.Exempt); err != nil {
			return fmt.Errorf("industry %s: %w", category, err)
		}
	}

	for _, def := range c.Rules {
		if err := checkKnown(known, def.VisaCodes); err != nil {
			return fmt.Errorf("rule %s: %w", def.ID, err)
		}
	}
	return nil
}

// Registry builds the rule table: the universal and visa-class rules implied
// by the visa classes, then industry rules, then declarative rules, each in
// catalog order. The registry is not frozen.
func (c *Catalog) Registry() (*rules.Registry, error) {
	reg, err := rules.New(c.Version, c.Visas...)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules.StandardRules(reg.Classes()) {
		if err := reg.Register(rule); err != nil {
			return nil, err
		}
	}

	for _, ind := range c.Industries {
		kind, err := industryOutcome(ind.Outcome)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(rules.Industry{
			Category:  eligibility.NormalizeIndustry(ind.Category),
			Kind:      kind,
			Reason:    strings.TrimSpace(ind.Reason),
			Documents: ind.Documents,
			Exempt:    parseCodes(ind.Exempt),
		}); err != nil {
			return nil, err
		}
	}

	if len(c.Rules) > 0 {
		env, err := rules.NewCELEnv()
		if err != nil {
			return nil, err
		}
		for _, def := range c.Rules {
			rule, err := rules.CompileCELRule(env, def)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(rule); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

// Evaluator builds and freezes the registry and returns an evaluator over it.
func (c *Catalog) Evaluator(opts ...evaluator.Option) (*evaluator.Evaluator, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return evaluator.New(reg, opts...)
}

func industryOutcome(raw string) (eligibility.OutcomeKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "conditional":
		return eligibility.OutcomeConditional, nil
	case "block":
		return eligibility.OutcomeBlock, nil
	case "note":
		return eligibility.OutcomeNote, nil
	default:
		return "", fmt.Errorf("unknown outcome %q", raw)
	}
}

func checkKnown(known map[eligibility.VisaCode]struct{}, raw []string) error {
	for _, r := range raw {
		code, ok := eligibility.ParseVisaCode(r)
		if !ok {
			return fmt.Errorf("visa code %q is malformed", r)
		}
		if _, ok := known[code]; !ok {
			return fmt.Errorf("visa code %s is not in the catalog", code)
		}
	}
	return nil
}

func parseCodes(raw []string) []eligibility.VisaCode {
	out := make([]eligibility.VisaCode, 0, len(raw))
	for _, r := range raw {
		if code, ok := eligibility.ParseVisaCode(r); ok {
			out = append(out, code)
		}
	}
	return out
}

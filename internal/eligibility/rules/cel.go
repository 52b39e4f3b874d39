package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"

	"visamatch/internal/eligibility"
)

// celCostLimit bounds the work a single catalog expression may do.
const celCostLimit = 10000

// CELDefinition declares a rule in the catalog. When is a boolean CEL
// expression over the `visa` and `job` maps; when it is true the rule returns
// Outcome, otherwise PASS.
type CELDefinition struct {
	ID          string   `json:"id" koanf:"id"`
	Layer       string   `json:"layer" koanf:"layer"`
	Description string   `json:"description,omitempty" koanf:"description"`
	VisaCodes   []string `json:"visaCodes,omitempty" koanf:"visa_codes"`
	BoardTypes  []string `json:"boardTypes,omitempty" koanf:"board_types"`
	Industries  []string `json:"industries,omitempty" koanf:"industries"`
	Requires    []string `json:"requires,omitempty" koanf:"requires"`
	When        string   `json:"when" koanf:"when"`
	Outcome     string   `json:"outcome" koanf:"outcome"`
	Reason      string   `json:"reason" koanf:"reason"`
	Documents   []string `json:"documents,omitempty" koanf:"documents"`
}

var celAttributeVars = map[string]eligibility.Attribute{
	"maxWeeklyHours":      eligibility.AttrMaxWeeklyHours,
	"hoursCapped":         eligibility.AttrMaxWeeklyHours,
	"permittedIndustries": eligibility.AttrPermittedIndustries,
	"industryRestricted":  eligibility.AttrPermittedIndustries,
	"requiresSponsorship": eligibility.AttrRequiresSponsorship,
	"requiresWorkPermit":  eligibility.AttrRequiresWorkPermit,
	"nationality":         eligibility.AttrNationality,
}

// NewCELEnv returns the environment catalog expressions compile against.
func NewCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("visa", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("job", cel.MapType(cel.StringType, cel.DynType)),
		cel.OptionalTypes(),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return env, nil
}

// CELRule is a compiled catalog rule.
type CELRule struct {
	def      CELDefinition
	layer    Layer
	selector Selector
	requires []eligibility.Attribute
	outcome  eligibility.OutcomeKind
	program  cel.Program
}

// CompileCELRule validates def and compiles its expression.
func CompileCELRule(env *cel.Env, def CELDefinition) (*CELRule, error) {
	if strings.TrimSpace(def.ID) == "" {
		return nil, errors.New("rule id is required")
	}
	layer, ok := ParseLayer(def.Layer)
	if !ok {
		return nil, fmt.Errorf("rule %s: unknown layer %q", def.ID, def.Layer)
	}
	outcome, err := parseOutcome(def.Outcome)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.ID, err)
	}
	if strings.TrimSpace(def.Reason) == "" {
		return nil, fmt.Errorf("rule %s: reason is required", def.ID)
	}
	if outcome != eligibility.OutcomeConditional && len(def.Documents) > 0 {
		return nil, fmt.Errorf("rule %s: documents are only allowed on conditional rules", def.ID)
	}

	selector, err := parseSelector(def)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.ID, err)
	}
	requires, err := parseRequires(def)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.ID, err)
	}

	ast, iss := env.Compile(def.When)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("rule %s: compile: %w", def.ID, iss.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule %s: expression must evaluate to bool, got %s", def.ID, out)
	}
	reads, err := visaReads(ast.NativeRep().Expr())
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.ID, err)
	}
	for _, attr := range reads {
		if !slices.Contains(requires, attr) {
			requires = append(requires, attr)
		}
	}
	prg, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("rule %s: program: %w", def.ID, err)
	}

	return &CELRule{
		def:      def,
		layer:    layer,
		selector: selector,
		requires: requires,
		outcome:  outcome,
		program:  prg,
	}, nil
}

func (r *CELRule) ID() string { return r.def.ID }
func (r *CELRule) Layer() Layer { return r.layer }
func (r *CELRule) AppliesTo(scope Scope) bool { return r.selector.Matches(scope) }
func (r *CELRule) Requires() []eligibility.Attribute { return r.requires }
func (r *CELRule) Definition() any { return r.def }

// Evaluate runs the expression. An expression that fails at runtime resolves
// to CONDITIONAL so a broken catalog entry never silently passes or blocks.
func (r *CELRule) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	out, _, err := r.program.Eval(map[string]any{
		"visa": visaVars(visa),
		"job":  jobVars(job),
	})
	if err != nil {
		return eligibility.Conditional(fmt.Sprintf("manual review required (%s)", r.def.ID))
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return eligibility.Conditional(fmt.Sprintf("manual review required (%s)", r.def.ID))
	}
	if !matched {
		return eligibility.Pass()
	}
	switch r.outcome {
	case eligibility.OutcomeBlock:
		return eligibility.Block(r.def.Reason)
	case eligibility.OutcomeNote:
		return eligibility.Note(r.def.Reason)
	default:
		return eligibility.Conditional(r.def.Reason, r.def.Documents...)
	}
}

func parseOutcome(raw string) (eligibility.OutcomeKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "block":
		return eligibility.OutcomeBlock, nil
	case "conditional":
		return eligibility.OutcomeConditional, nil
	case "note":
		return eligibility.OutcomeNote, nil
	default:
		return "", fmt.Errorf("unknown outcome %q (want block, conditional or note)", raw)
	}
}

func parseSelector(def CELDefinition) (Selector, error) {
	var s Selector
	for _, raw := range def.VisaCodes {
		code, ok := eligibility.ParseVisaCode(raw)
		if !ok {
			return Selector{}, fmt.Errorf("malformed visa code %q", raw)
		}
		s.VisaCodes = append(s.VisaCodes, code)
	}
	for _, raw := range def.BoardTypes {
		bt, ok := eligibility.ParseBoardType(raw)
		if !ok {
			return Selector{}, fmt.Errorf("unknown board type %q", raw)
		}
		s.BoardTypes = append(s.BoardTypes, bt)
	}
	for _, raw := range def.Industries {
		if c := eligibility.NormalizeIndustry(raw); c != "" {
			s.Industries = append(s.Industries, c)
		}
	}
	return s, nil
}

func parseRequires(def CELDefinition) ([]eligibility.Attribute, error) {
	var out []eligibility.Attribute
	add := func(a eligibility.Attribute) {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	for _, raw := range def.Requires {
		attr, ok := celAttributeVars[strings.TrimSpace(raw)]
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", raw)
		}
		add(attr)
	}
	return out, nil
}

// visaReads lists the attributes an expression reads from `visa`, in the
// order they appear. Every use of `visa` must be a field select or an index
// with a constant string key naming a known field.
func visaReads(root celast.Expr) ([]eligibility.Attribute, error) {
	var (
		out     []eligibility.Attribute
		errs    []error
		uses    = map[int64]bool{}
		covered = map[int64]bool{}
	)
	isVisa := func(e celast.Expr) bool {
		return e.Kind() == celast.IdentKind && e.AsIdent() == "visa"
	}
	field := func(operand celast.Expr, name string) {
		covered[operand.ID()] = true
		if name == "code" {
			return
		}
		attr, ok := celAttributeVars[name]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown visa field %q", name))
			return
		}
		if !slices.Contains(out, attr) {
			out = append(out, attr)
		}
	}

	celast.PreOrderVisit(root, celast.NewExprVisitor(func(e celast.Expr) {
		switch e.Kind() {
		case celast.IdentKind:
			if isVisa(e) {
				uses[e.ID()] = true
			}
		case celast.SelectKind:
			sel := e.AsSelect()
			if isVisa(sel.Operand()) {
				field(sel.Operand(), sel.FieldName())
			}
		case celast.CallKind:
			call := e.AsCall()
			switch call.FunctionName() {
			case operators.Index, operators.OptIndex, operators.OptSelect:
			default:
				return
			}
			args := call.Args()
			if len(args) != 2 || !isVisa(args[0]) {
				return
			}
			key, ok := constantString(args[1])
			if !ok {
				covered[args[0].ID()] = true
				errs = append(errs, errors.New("visa must be indexed by a constant string key"))
				return
			}
			field(args[0], key)
		}
	}))

	for id := range uses {
		if !covered[id] {
			errs = append(errs, errors.New("visa may only be read through its fields"))
			break
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func constantString(e celast.Expr) (string, bool) {
	if e.Kind() != celast.LiteralKind {
		return "", false
	}
	s, ok := e.AsLiteral().Value().(string)
	return s, ok
}

// visaVars exposes a profile to CEL. Every key is always present so
// expressions never fail on a missing field.
func visaVars(visa eligibility.VisaProfile) map[string]any {
	vars := map[string]any{
		"code":                string(visa.Code),
		"hoursCapped":         false,
		"maxWeeklyHours":      int64(0),
		"industryRestricted":  false,
		"permittedIndustries": []string{},
		"requiresSponsorship": false,
		"requiresWorkPermit":  false,
		"nationality":         "",
	}
	if a := visa.Attributes; a != nil {
		if a.MaxWeeklyHours != nil {
			vars["hoursCapped"] = true
			vars["maxWeeklyHours"] = int64(*a.MaxWeeklyHours)
		}
		if a.PermittedIndustries != nil {
			vars["industryRestricted"] = true
			vars["permittedIndustries"] = a.PermittedIndustries
		}
		vars["requiresSponsorship"] = a.RequiresSponsorship
		vars["requiresWorkPermit"] = a.RequiresWorkPermit
		vars["nationality"] = a.Nationality
	}
	return vars
}

func jobVars(job eligibility.JobConstraints) map[string]any {
	codes := make([]string, 0, len(job.AllowedVisaCodes))
	for _, c := range job.AllowedVisaCodes {
		codes = append(codes, string(c))
	}
	vars := map[string]any{
		"allowedVisaCodes":    codes,
		"boardType":           string(job.BoardType),
		"hasWeeklyHours":      job.WeeklyHours != nil,
		"weeklyHours":         int64(0),
		"industryCategory":    job.IndustryCategory,
		"sponsorshipKnown":    job.RequiresSponsorship != nil,
		"requiresSponsorship": false,
	}
	if job.WeeklyHours != nil {
		vars["weeklyHours"] = int64(*job.WeeklyHours)
	}
	if job.RequiresSponsorship != nil {
		vars["requiresSponsorship"] = *job.RequiresSponsorship
	}
	return vars
}

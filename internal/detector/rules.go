package detector

// Category identifies one of the known prompt-injection attack families.
type Category string

const (
	InstructionOverride   Category = "INSTRUCTION_OVERRIDE"
	RoleEscalation        Category = "ROLE_ESCALATION"
	DataExfiltration      Category = "DATA_EXFILTRATION"
	JailbreakPolicyBypass Category = "JAILBREAK_POLICY_BYPASS"
	IndirectInjection     Category = "INDIRECT_INJECTION"
)

// categoryOrder is the canonical ordering used everywhere a stable
// category sequence is required (verdict lists, breakdowns, tests).
var categoryOrder = []Category{
	InstructionOverride,
	RoleEscalation,
	DataExfiltration,
	JailbreakPolicyBypass,
	IndirectInjection,
}

// Categories returns all known categories in canonical order.
// The returned slice is a copy and safe to modify.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

var displayNames = map[Category]string{
	InstructionOverride:   "Instruction Override",
	RoleEscalation:        "Role Escalation",
	DataExfiltration:      "Data Exfiltration",
	JailbreakPolicyBypass: "Jailbreak / Policy Bypass",
	IndirectInjection:     "Indirect Injection",
}

// DisplayName returns the human-readable name used in explanations.
func (c Category) DisplayName() string {
	if n, ok := displayNames[c]; ok {
		return n
	}
	return string(c)
}

// ParseCategory maps a case-insensitive category name to its canonical value.
func ParseCategory(s string) (Category, bool) {
	c := Category(normalizeCategoryName(s))
	_, ok := displayNames[c]
	return c, ok
}

// TaxonomyEntry carries the OWASP LLM Top 10 classification for a category.
type TaxonomyEntry struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	OWASP    string `json:"owasp"`
}

var taxonomy = map[Category]TaxonomyEntry{
	InstructionOverride: {
		Code:     "LLM01-IO",
		Name:     "Prompt Injection - Instruction Override",
		Severity: "High",
		OWASP:    "LLM01 - Prompt Injection",
	},
	RoleEscalation: {
		Code:     "LLM01-RE",
		Name:     "Prompt Injection - Role Escalation",
		Severity: "High",
		OWASP:    "LLM01 - Prompt Injection",
	},
	DataExfiltration: {
		Code:     "LLM06-DE",
		Name:     "Sensitive Information Disclosure",
		Severity: "Critical",
		OWASP:    "LLM06 - Sensitive Info Disclosure",
	},
	JailbreakPolicyBypass: {
		Code:     "LLM01-JB",
		Name:     "Prompt Injection - Jailbreak",
		Severity: "Critical",
		OWASP:    "LLM01 - Prompt Injection",
	},
	IndirectInjection: {
		Code:     "LLM01-II",
		Name:     "Prompt Injection - Indirect",
		Severity: "Medium",
		OWASP:    "LLM01 - Prompt Injection",
	},
}

// Taxonomy returns the OWASP taxonomy entry for a category.
func Taxonomy(c Category) (TaxonomyEntry, bool) {
	t, ok := taxonomy[c]
	return t, ok
}

// RuleKind distinguishes the two supported rule flavors.
type RuleKind string

const (
	// RuleKeyword is a case-insensitive literal substring match.
	RuleKeyword RuleKind = "keyword"
	// RuleRegex is a case-insensitive regular expression matched
	// against the whole input text.
	RuleRegex RuleKind = "regex"
)

// RuleSpec is the data form of a single detection rule. Rules are data,
// not code: the built-in table below and any extra rules loaded from
// config go through the same compilation path.
type RuleSpec struct {
	Name    string
	Kind    RuleKind
	Pattern string
}

// defaultRuleSpecs is the built-in rule table. Ordering within a category
// is preserved into match reporting. Patterns are deliberately loose
// (non-greedy gaps between anchor words) and will fire on quoted examples
// of attacks as well; that false-positive tradeoff is part of the design.
var defaultRuleSpecs = map[Category][]RuleSpec{
	InstructionOverride: {
		{Name: "ignore_previous", Kind: RuleRegex,
			Pattern: `(?:ignore|disregard|forget|skip)\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier)\b[^.?!]*?\b(?:instructions?|rules?|prompts?|commands?|directions?)`},
		{Name: "disregard_above", Kind: RuleRegex,
			Pattern: `disregard\s+the\s+above`},
		{Name: "forget_rules", Kind: RuleRegex,
			Pattern: `forget\s+(?:your|the)\s+(?:rules?|instructions?|training)\b`},
		{Name: "override_instructions", Kind: RuleRegex,
			Pattern: `(?:override|bypass|circumvent)\s+(?:your\s+|the\s+|all\s+)?(?:instructions?|rules?|system\s+prompt)`},
		{Name: "disregard_guidelines", Kind: RuleRegex,
			Pattern: `(?:ignore|disregard|forget)\s+(?:your\s+|the\s+|all\s+)?(?:safety\s+)?guidelines\b`},
		{Name: "new_instructions_marker", Kind: RuleRegex,
			Pattern: `new\s+instructions?\s*:`},
	},
	RoleEscalation: {
		{Name: "you_are_now", Kind: RuleRegex,
			Pattern: `you\s+are\s+now\b`},
		{Name: "act_as", Kind: RuleRegex,
			Pattern: `act\s+as\b`},
		{Name: "pretend_to_be", Kind: RuleRegex,
			Pattern: `pretend\s+to\s+be\b`},
		{Name: "assume_role", Kind: RuleRegex,
			Pattern: `assume\s+the\s+role\b`},
		{Name: "imagine_you_are", Kind: RuleRegex,
			Pattern: `imagine\s+you\s+are\b`},
		{Name: "privileged_mode", Kind: RuleRegex,
			Pattern: `(?:developer|debug|god)\s+mode\b`},
		{Name: "unrestricted_persona", Kind: RuleRegex,
			Pattern: `unrestricted\s+(?:ai|assistant|model|mode)\b`},
		{Name: "pretend_no_filter", Kind: RuleRegex,
			Pattern: `pretend\b[^.?!]*?\bno\s+filters?\b`},
	},
	DataExfiltration: {
		{Name: "system_prompt_leak", Kind: RuleRegex,
			Pattern: `(?:reveal|show|tell|display|print|expose|leak|output|repeat)\b[^.?!]*?\bsystem\s+(?:prompt|message)`},
		{Name: "hidden_instructions_leak", Kind: RuleRegex,
			Pattern: `(?:reveal|show|display|print|expose|leak)\b[^.?!]*?\b(?:hidden|internal|initial|developer|original)\s+instructions?`},
		{Name: "show_me_instructions", Kind: RuleRegex,
			Pattern: `show\s+me\s+your\s+instructions\b`},
		{Name: "what_are_your_rules", Kind: RuleRegex,
			Pattern: `what\s+are\s+your?\s+(?:rules?|instructions?)\b`},
		{Name: "training_data_leak", Kind: RuleRegex,
			Pattern: `(?:leak|reveal|show|expose)\b[^.?!]*?\btraining\s+data\b`},
		{Name: "configuration_leak", Kind: RuleRegex,
			Pattern: `(?:reveal|show|expose|print)\b[^.?!]*?\b(?:internal\s+)?configuration\b`},
		{Name: "api_key_leak", Kind: RuleRegex,
			Pattern: `(?:leak|reveal|show|expose)\b[^.?!]*?\bapi\s+keys?\b`},
	},
	JailbreakPolicyBypass: {
		{Name: "dan_mode", Kind: RuleKeyword, Pattern: "dan mode"},
		{Name: "you_are_dan", Kind: RuleRegex,
			Pattern: `\byou\s+are\s+(?:now\s+)?dan\b`},
		{Name: "do_anything_now", Kind: RuleRegex,
			Pattern: `\bdo\s+anything\s+now\b`},
		{Name: "jailbreak", Kind: RuleKeyword, Pattern: "jailbreak"},
		{Name: "uncensored", Kind: RuleKeyword, Pattern: "uncensored"},
		{Name: "bypass_restrictions", Kind: RuleRegex,
			Pattern: `bypass\s+(?:your\s+|the\s+|all\s+)?(?:restrictions?|safety|filters?|policy|policies|moderation)`},
		{Name: "disable_safety", Kind: RuleRegex,
			Pattern: `(?:disable|circumvent|override)\s+(?:your\s+|the\s+|all\s+)?(?:safety|filters?|moderation|restrictions?)`},
		{Name: "ignore_safety", Kind: RuleRegex,
			Pattern: `ignore\s+(?:your\s+|the\s+|all\s+)?(?:safety|restrictions?|ethical\s+guidelines)`},
		{Name: "no_restrictions", Kind: RuleRegex,
			Pattern: `\bno\s+(?:restrictions?|limitations?)\b`},
		{Name: "without_any_rules", Kind: RuleRegex,
			Pattern: `without\s+any\s+(?:rules?|restrictions?|filters?)\b`},
		{Name: "provide_harmful", Kind: RuleRegex,
			Pattern: `provide\s+(?:illegal|harmful|malicious)\b`},
	},
	IndirectInjection: {
		{Name: "bracketed_system", Kind: RuleRegex,
			Pattern: `\[[^\[\]]*system[^\[\]]*\]`},
		{Name: "angled_system", Kind: RuleRegex,
			Pattern: `<[^<>]*sys(?:tem)?[^<>]*>`},
		{Name: "braced_system", Kind: RuleRegex,
			Pattern: `\{[^{}]*system[^{}]*\}`},
		{Name: "hidden_command", Kind: RuleKeyword, Pattern: "hidden command"},
		{Name: "system_mode_marker", Kind: RuleRegex,
			Pattern: `(?:begin|start)\s+system\s+(?:mode|diagnostic)`},
		{Name: "embedded_document_instruction", Kind: RuleRegex,
			Pattern: `(?:document|email|page|website)\s+(?:below\s+|above\s+)?(?:says|instructs|tells)\s+(?:you|the\s+(?:ai|assistant|model))`},
	},
}

// DefaultRules returns a deep copy of the built-in rule table.
func DefaultRules() map[Category][]RuleSpec {
	out := make(map[Category][]RuleSpec, len(defaultRuleSpecs))
	for cat, specs := range defaultRuleSpecs {
		cp := make([]RuleSpec, len(specs))
		copy(cp, specs)
		out[cat] = cp
	}
	return out
}

// Package ontology loads and exposes the reference ontology: the closed
// enumerations that constrain extracted metadata. It is process-wide,
// loaded once at startup, and immutable thereafter.
package ontology

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"typologyrag/internal/rag/errs"
)

// Ontology is the immutable set of enumerated domain values. Construct with
// Load; the zero value is not useful.
type Ontology struct {
	types             map[string]struct{} // canonical MBTI types, e.g. "INTJ"
	typeVariants      map[string]string   // known misspelling/variant -> canonical type
	functions         map[string]struct{} // Ne, Ni, Se, Si, Te, Ti, Fe, Fi
	functionVariants  map[string]string   // e.g. "tea" -> "Te"
	relationshipKinds map[string]struct{} // golden_pair|pedagogue_pair|bronze_pair|none
	quadras           map[string]struct{} // alpha|beta|gamma|none
	temples           map[string]struct{} // heart|mind|soul|none
	categories        map[string]struct{}
	archetypes        map[string]struct{}
	difficulties      map[string]struct{}
	developmentCodes  map[string]struct{} // UDSF, UDUF, ...
	funcRepairContext map[string]struct{} // neighbor-word guard for function repair
}

// file is the on-disk shape of the ontology document (§6.8).
type file struct {
	Types             []string          `yaml:"types"`
	TypeVariants      map[string]string `yaml:"type_variants"`
	Functions         []string          `yaml:"functions"`
	FunctionVariants  map[string]string `yaml:"function_variants"`
	RelationshipKinds []string          `yaml:"relationship_kinds"`
	Quadras           []string          `yaml:"quadras"`
	Temples           []string          `yaml:"temples"`
	Categories        []string          `yaml:"categories"`
	Archetypes        []string          `yaml:"archetypes"`
	Difficulties      []string          `yaml:"difficulties"`
	DevelopmentCodes  []string          `yaml:"development_codes"`
	FuncRepairContext []string          `yaml:"function_repair_context_words"`
}

// Load reads and parses the ontology file at path. A missing or malformed
// file is a fatal ConfigError per §6.8.
func Load(path string) (*Ontology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read ontology file %q: %v", errs.ErrConfig, path, err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: parse ontology file %q: %v", errs.ErrConfig, path, err)
	}
	o := &Ontology{
		types:             toSet(f.Types),
		typeVariants:      lowerKeys(f.TypeVariants),
		functions:         toSet(f.Functions),
		functionVariants:  lowerKeys(f.FunctionVariants),
		relationshipKinds: toSet(f.RelationshipKinds),
		quadras:           toSet(lowerAll(f.Quadras)),
		temples:           toSet(lowerAll(f.Temples)),
		categories:        toSet(f.Categories),
		archetypes:        toSet(f.Archetypes),
		difficulties:      toSet(f.Difficulties),
		developmentCodes:  toSet(f.DevelopmentCodes),
		funcRepairContext: toSet(lowerAll(f.FuncRepairContext)),
	}
	if len(o.types) == 0 || len(o.functions) == 0 || len(o.relationshipKinds) == 0 {
		return nil, fmt.Errorf("%w: ontology file %q missing required enumerations", errs.ErrConfig, path)
	}
	return o, nil
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func lowerAll(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strings.ToLower(v)
	}
	return out
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// IsType reports whether t is a canonical MBTI type.
func (o *Ontology) IsType(t string) bool {
	_, ok := o.types[strings.ToUpper(t)]
	return ok
}

// CanonicalType resolves a known variant spelling to its canonical type.
// Returns ("", false) when v is neither canonical nor a known variant.
func (o *Ontology) CanonicalType(v string) (string, bool) {
	up := strings.ToUpper(strings.TrimSpace(v))
	if o.IsType(up) {
		return up, true
	}
	if canon, ok := o.typeVariants[strings.ToLower(v)]; ok {
		return canon, true
	}
	return "", false
}

// Types returns all canonical MBTI types.
func (o *Ontology) Types() []string { return keys(o.types) }

// IsFunction reports whether f (e.g. "Te") is a cognitive function code.
func (o *Ontology) IsFunction(f string) bool {
	_, ok := o.functions[normalizeFunctionCase(f)]
	return ok
}

// CanonicalFunction resolves a known misspelling (e.g. "tea") to its
// canonical function code (e.g. "Te").
func (o *Ontology) CanonicalFunction(v string) (string, bool) {
	norm := normalizeFunctionCase(v)
	if o.IsFunction(norm) {
		return norm, true
	}
	if canon, ok := o.functionVariants[strings.ToLower(v)]; ok {
		return canon, true
	}
	return "", false
}

// Functions returns all eight cognitive function codes.
func (o *Ontology) Functions() []string { return keys(o.functions) }

// IsFunctionRepairContextWord reports whether w is one of the typology
// context words that license a function-homophone repair when adjacent
// to it (§4.2.3's neighbor-word guard).
func (o *Ontology) IsFunctionRepairContextWord(w string) bool {
	_, ok := o.funcRepairContext[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

func normalizeFunctionCase(f string) string {
	f = strings.TrimSpace(f)
	if len(f) != 2 {
		return f
	}
	return strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
}

// IsRelationshipKind reports membership in the closed set of 4.
func (o *Ontology) IsRelationshipKind(k string) bool {
	_, ok := o.relationshipKinds[strings.ToLower(k)]
	return ok
}

// IsQuadra reports membership in {alpha,beta,gamma,none} (case-insensitive).
func (o *Ontology) IsQuadra(q string) bool {
	_, ok := o.quadras[strings.ToLower(q)]
	return ok
}

// IsTemple reports membership in {heart,mind,soul,none} (case-insensitive).
func (o *Ontology) IsTemple(t string) bool {
	_, ok := o.temples[strings.ToLower(t)]
	return ok
}

// IsCategory reports membership in the content-category enumeration.
func (o *Ontology) IsCategory(c string) bool {
	_, ok := o.categories[c]
	return ok
}

// IsDifficulty reports membership in {beginner,intermediate,advanced}.
func (o *Ontology) IsDifficulty(d string) bool {
	_, ok := o.difficulties[d]
	return ok
}

// IsDevelopmentCode reports membership in the closed development-notation
// set (UDSF, UDUF, SDSF, SDUF, USF, UUF, SSF, SUF).
func (o *Ontology) IsDevelopmentCode(c string) bool {
	_, ok := o.developmentCodes[strings.ToUpper(c)]
	return ok
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

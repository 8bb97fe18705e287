// Package geneconfig loads the versionable rule tables that drive
// FDA-approval matching: per-gene variant classes, special-case exclusion
// rules, investigational-only gene/tumor pairs, indication exclusion phrases
// and drug name aliases. The tables are plain YAML so domain experts can
// extend matching rules without touching the decision engine.
package geneconfig

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CodonRange matches variants positioned within [Start, End] codons.
type CodonRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// VariantClassRule describes which variants of a gene belong to an
// approval-relevant class. A "*" entry in Variants matches any variant.
type VariantClassRule struct {
	Name            string       `yaml:"name"`
	Patterns        []string     `yaml:"patterns,omitempty"`         // substrings looked up in indication text
	Variants        []string     `yaml:"variants,omitempty"`         // explicit variant list; "*" = any
	CodonRanges     []CodonRange `yaml:"codon_ranges,omitempty"`     // positional matching
	ExcludePatterns []string     `yaml:"exclude_patterns,omitempty"` // indication substrings that veto the class
	ExcludeVariants []string     `yaml:"exclude_variants,omitempty"`
}

// SpecialRule is a per-variant exception keyed by tumor-exclusion substrings.
// When the tumor context matches an exclusion: if UnlessExplicit is false the
// approval is denied outright; if true, approval is granted only when the
// variant string literally appears in the indication text.
type SpecialRule struct {
	Variant        string   `yaml:"variant"`
	TumorExcludes  []string `yaml:"tumor_excludes"`
	UnlessExplicit bool     `yaml:"unless_explicit,omitempty"`
	Note           string   `yaml:"note,omitempty"`
}

// GeneClass is the full per-gene rule set.
type GeneClass struct {
	ClassName        string             `yaml:"class_name,omitempty"`
	TherapeuticDrugs []string           `yaml:"therapeutic_drugs,omitempty"`
	RequireExplicit  bool               `yaml:"require_explicit,omitempty"` // demand variant-class match instead of default-approve
	VariantClasses   []VariantClassRule `yaml:"variant_classes,omitempty"`
	SpecialRules     []SpecialRule      `yaml:"special_rules,omitempty"`
}

// GeneTumorPair marks a gene/tumor combination where targeted therapy has
// failed clinically. Tumor "*" applies to every tumor type.
type GeneTumorPair struct {
	Gene  string `yaml:"gene"`
	Tumor string `yaml:"tumor"`
	Note  string `yaml:"note,omitempty"`
}

// SubtypeRule marks variants that define a prognostic molecular subtype.
type SubtypeRule struct {
	Gene     string   `yaml:"gene"`
	Variants []string `yaml:"variants"`
	Tumors   []string `yaml:"tumors,omitempty"` // empty = any tumor
	Note     string   `yaml:"note,omitempty"`
}

// Config is the complete rule-table set consumed by the FDA resolver and the
// tier decision engine.
type Config struct {
	Genes               map[string]GeneClass `yaml:"genes"`
	InvestigationalOnly []GeneTumorPair      `yaml:"investigational_only"`
	ExclusionPhrases    []string             `yaml:"exclusion_phrases"`
	DrugAliases         map[string]string    `yaml:"drug_aliases"` // brand -> generic, lowercase
	SubtypeDefining     []SubtypeRule        `yaml:"subtype_defining"`
}

// Load reads and validates the rule tables from a YAML file. A missing file
// degrades to the built-in defaults rather than failing classification.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading gene config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing gene config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating gene config: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills table sections omitted from the file from the built-ins.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Genes == nil {
		c.Genes = def.Genes
	}
	if c.InvestigationalOnly == nil {
		c.InvestigationalOnly = def.InvestigationalOnly
	}
	if len(c.ExclusionPhrases) == 0 {
		c.ExclusionPhrases = def.ExclusionPhrases
	}
	if c.DrugAliases == nil {
		c.DrugAliases = def.DrugAliases
	}
	if c.SubtypeDefining == nil {
		c.SubtypeDefining = def.SubtypeDefining
	}
}

// Validate catches malformed tables at load time, before they reach the
// decision engine.
func (c *Config) Validate() error {
	for gene, gc := range c.Genes {
		if strings.TrimSpace(gene) == "" {
			return fmt.Errorf("gene class with empty gene symbol")
		}
		for _, vc := range gc.VariantClasses {
			if vc.Name == "" {
				return fmt.Errorf("gene %s: variant class without a name", gene)
			}
			for _, cr := range vc.CodonRanges {
				if cr.Start <= 0 || cr.End < cr.Start {
					return fmt.Errorf("gene %s class %s: invalid codon range %d-%d", gene, vc.Name, cr.Start, cr.End)
				}
			}
		}
		for _, sr := range gc.SpecialRules {
			if sr.Variant == "" {
				return fmt.Errorf("gene %s: special rule without a variant", gene)
			}
			if len(sr.TumorExcludes) == 0 {
				return fmt.Errorf("gene %s: special rule for %s has no tumor exclusions", gene, sr.Variant)
			}
		}
	}
	for _, pair := range c.InvestigationalOnly {
		if pair.Gene == "" || pair.Tumor == "" {
			return fmt.Errorf("investigational-only pair with empty gene or tumor")
		}
	}
	for _, sd := range c.SubtypeDefining {
		if sd.Gene == "" || len(sd.Variants) == 0 {
			return fmt.Errorf("subtype-defining rule with empty gene or variant list")
		}
	}
	return nil
}

// GeneClass returns the configured class for a gene, if any. Lookup is
// case-insensitive on the gene symbol.
func (c *Config) GeneClass(gene string) (GeneClass, bool) {
	gc, ok := c.Genes[strings.ToUpper(strings.TrimSpace(gene))]
	return gc, ok
}

// IsInvestigationalOnly reports whether the gene/tumor pair is flagged as a
// known clinically failed target. An empty tumor type only matches "*" rows.
func (c *Config) IsInvestigationalOnly(gene, tumorType string) bool {
	gene = strings.ToUpper(strings.TrimSpace(gene))
	tumor := strings.ToLower(strings.TrimSpace(tumorType))
	for _, pair := range c.InvestigationalOnly {
		if strings.ToUpper(pair.Gene) != gene {
			continue
		}
		if pair.Tumor == "*" {
			return true
		}
		if tumor == "" {
			continue
		}
		pt := strings.ToLower(pair.Tumor)
		if strings.Contains(tumor, pt) || strings.Contains(pt, tumor) {
			return true
		}
	}
	return false
}

// NormalizeDrug lowercases, trims, and resolves brand names to generics so
// that literature corroboration survives brand/generic mismatches.
func (c *Config) NormalizeDrug(drug string) string {
	d := strings.ToLower(strings.TrimSpace(drug))
	if generic, ok := c.DrugAliases[d]; ok {
		return generic
	}
	return d
}

// SubtypeFor returns the subtype-defining rule matching the variant in the
// given tumor context, if one exists.
func (c *Config) SubtypeFor(gene, variant, tumorType string) (SubtypeRule, bool) {
	gene = strings.ToUpper(strings.TrimSpace(gene))
	variant = strings.ToUpper(strings.TrimSpace(variant))
	tumor := strings.ToLower(strings.TrimSpace(tumorType))
	for _, sd := range c.SubtypeDefining {
		if strings.ToUpper(sd.Gene) != gene {
			continue
		}
		variantHit := false
		for _, v := range sd.Variants {
			if strings.ToUpper(v) == variant {
				variantHit = true
				break
			}
		}
		if !variantHit {
			continue
		}
		if len(sd.Tumors) == 0 {
			return sd, true
		}
		for _, t := range sd.Tumors {
			if tumor != "" && strings.Contains(tumor, strings.ToLower(t)) {
				return sd, true
			}
		}
	}
	return SubtypeRule{}, false
}

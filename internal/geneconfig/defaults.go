package geneconfig

// Default returns the built-in rule tables. These mirror the curated
// knowledge the matcher ships with; deployments override them with a YAML
// file when local curation diverges.
func Default() *Config {
	return &Config{
		Genes: map[string]GeneClass{
			"BRAF": {
				ClassName:        "kinase_activating",
				TherapeuticDrugs: []string{"vemurafenib", "dabrafenib", "encorafenib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "v600",
						Patterns: []string{"braf v600", "v600e", "v600k", "v600 mutation"},
						Variants: []string{"V600E", "V600K", "V600D", "V600R"},
					},
				},
			},
			"EGFR": {
				ClassName:        "kinase_activating",
				TherapeuticDrugs: []string{"osimertinib", "erlotinib", "gefitinib", "afatinib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "tki_sensitizing",
						Patterns: []string{"exon 19 deletion", "l858r", "egfr exon 19"},
						Variants: []string{"L858R"},
						CodonRanges: []CodonRange{
							{Start: 729, End: 761}, // exon 19 del window
						},
						ExcludePatterns: []string{"exon 20 insertion"},
						ExcludeVariants: []string{"T790M"},
					},
					{
						Name:     "t790m",
						Patterns: []string{"t790m"},
						Variants: []string{"T790M"},
					},
					{
						Name:        "exon20_insertion",
						Patterns:    []string{"exon 20 insertion"},
						CodonRanges: []CodonRange{{Start: 762, End: 823}},
					},
				},
			},
			"KIT": {
				ClassName:        "kinase_activating",
				TherapeuticDrugs: []string{"imatinib", "avapritinib", "ripretinib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "kit_mutant",
						Patterns: []string{"kit mutation", "c-kit"},
						Variants: []string{"*"},
					},
				},
				// D816V is approved in mastocytosis but predicts imatinib
				// resistance in GIST; never inherit the GIST approval.
				SpecialRules: []SpecialRule{
					{
						Variant:       "D816V",
						TumorExcludes: []string{"gastrointestinal stromal", "gist"},
						Note:          "D816V predicts TKI resistance in GIST",
					},
				},
			},
			"KRAS": {
				ClassName:        "ras_pathway",
				TherapeuticDrugs: []string{"sotorasib", "adagrasib"},
				RequireExplicit:  true,
				VariantClasses: []VariantClassRule{
					{
						Name:     "g12c",
						Patterns: []string{"kras g12c"},
						Variants: []string{"G12C"},
					},
				},
			},
			"BRCA1": {
				ClassName:        "ddr_lof",
				TherapeuticDrugs: []string{"olaparib", "talazoparib", "niraparib", "rucaparib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "deleterious",
						Patterns: []string{"brca-mutated", "deleterious brca", "germline brca", "somatic brca"},
						Variants: []string{"*"},
					},
				},
			},
			"BRCA2": {
				ClassName:        "ddr_lof",
				TherapeuticDrugs: []string{"olaparib", "talazoparib", "niraparib", "rucaparib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "deleterious",
						Patterns: []string{"brca-mutated", "deleterious brca", "germline brca", "somatic brca"},
						Variants: []string{"*"},
					},
				},
			},
			"ERBB2": {
				ClassName:        "kinase_activating",
				TherapeuticDrugs: []string{"trastuzumab deruxtecan", "tucatinib"},
				VariantClasses: []VariantClassRule{
					{
						Name:        "activating",
						Patterns:    []string{"her2-activating", "erbb2 mutation"},
						CodonRanges: []CodonRange{{Start: 755, End: 781}},
					},
				},
			},
			"ALK": {
				ClassName:        "fusion_kinase",
				TherapeuticDrugs: []string{"alectinib", "lorlatinib", "crizotinib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "fusion",
						Patterns: []string{"alk-positive", "alk rearrangement", "alk fusion"},
						Variants: []string{"*"},
					},
				},
			},
			"RET": {
				ClassName:        "fusion_kinase",
				TherapeuticDrugs: []string{"selpercatinib", "pralsetinib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "altered",
						Patterns: []string{"ret fusion", "ret-mutant", "ret alteration"},
						Variants: []string{"*"},
					},
				},
			},
			"PIK3CA": {
				ClassName:        "pi3k_pathway",
				TherapeuticDrugs: []string{"alpelisib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "hotspot",
						Patterns: []string{"pik3ca-mutated", "pik3ca mutation"},
						Variants: []string{"H1047R", "E545K", "E542K"},
					},
				},
			},
			"IDH1": {
				ClassName:        "metabolic",
				TherapeuticDrugs: []string{"ivosidenib"},
				VariantClasses: []VariantClassRule{
					{
						Name:     "r132",
						Patterns: []string{"idh1 mutation", "susceptible idh1"},
						CodonRanges: []CodonRange{
							{Start: 132, End: 132},
						},
					},
				},
			},
		},
		InvestigationalOnly: []GeneTumorPair{
			{Gene: "KRAS", Tumor: "pancrea", Note: "KRAS-targeted therapy has repeatedly failed in pancreatic cancer outside G12C trials"},
			{Gene: "PTEN", Tumor: "glioblastoma", Note: "PI3K/AKT inhibition has not succeeded in PTEN-deleted GBM"},
			{Gene: "TP53", Tumor: "*", Note: "no approved TP53-directed therapy in any tumor type"},
		},
		ExclusionPhrases: []string{
			"without the",
			"without a",
			"excluding",
			"except",
			"other than",
			"in the absence of",
			"negative for",
			"who do not have",
			"no evidence of",
		},
		DrugAliases: map[string]string{
			"tarceva":   "erlotinib",
			"iressa":    "gefitinib",
			"tagrisso":  "osimertinib",
			"gleevec":   "imatinib",
			"glivec":    "imatinib",
			"zelboraf":  "vemurafenib",
			"tafinlar":  "dabrafenib",
			"mekinist":  "trametinib",
			"erbitux":   "cetuximab",
			"vectibix":  "panitumumab",
			"herceptin": "trastuzumab",
			"lynparza":  "olaparib",
			"lumakras":  "sotorasib",
			"krazati":   "adagrasib",
			"xalkori":   "crizotinib",
			"alecensa":  "alectinib",
			"piqray":    "alpelisib",
		},
		SubtypeDefining: []SubtypeRule{
			{
				Gene:     "POLE",
				Variants: []string{"P286R", "V411L", "S297F", "A456P", "S459F"},
				Tumors:   []string{"endometrial", "colorectal"},
				Note:     "POLE exonuclease-domain hotspots define an ultramutated, favorable-prognosis subtype",
			},
		},
	}
}

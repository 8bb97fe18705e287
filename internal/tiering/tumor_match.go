// Package tiering implements the AMP/ASCO/CAP tier decision engine and the
// evidence aggregation logic that feeds it. Everything in this package is a
// pure, synchronous computation over an already-populated EvidenceRecord.
package tiering

import "strings"

// tumorAbbreviations maps common oncology abbreviations to the disease names
// they may appear as in evidence items. Matching is deliberately strict:
// substring containment or shared table entry only, no token-level fuzzing,
// so that "NSCLC" can never equate to "CRC".
var tumorAbbreviations = map[string][]string{
	"crc":   {"colorectal cancer", "colorectal carcinoma", "colon cancer", "rectal cancer"},
	"nsclc": {"non-small cell lung cancer", "non small cell lung cancer", "lung non-small cell carcinoma", "lung adenocarcinoma"},
	"sclc":  {"small cell lung cancer", "lung small cell carcinoma"},
	"gist":  {"gastrointestinal stromal tumor", "gastrointestinal stromal tumour"},
	"mpn":   {"myelofibrosis", "polycythemia vera", "essential thrombocythemia", "myeloproliferative neoplasm"},
	"aml":   {"acute myeloid leukemia", "acute myelogenous leukemia"},
	"cml":   {"chronic myeloid leukemia", "chronic myelogenous leukemia"},
	"all":   {"acute lymphoblastic leukemia"},
	"cll":   {"chronic lymphocytic leukemia"},
	"hcc":   {"hepatocellular carcinoma", "liver cancer"},
	"rcc":   {"renal cell carcinoma", "kidney cancer"},
	"pdac":  {"pancreatic ductal adenocarcinoma", "pancreatic cancer", "pancreatic adenocarcinoma"},
	"tnbc":  {"triple-negative breast cancer", "triple negative breast cancer"},
	"dlbcl": {"diffuse large b-cell lymphoma"},
	"gbm":   {"glioblastoma", "glioblastoma multiforme"},
	"hnscc": {"head and neck squamous cell carcinoma"},
}

// TumorTypesMatch reports whether a user-supplied tumor type and a disease
// name from an evidence item refer to the same disease. Case-insensitive;
// true on substring containment either direction, or when both sides resolve
// to the same abbreviation-table entry. Empty input never matches.
func TumorTypesMatch(userTumorType, evidenceDisease string) bool {
	a := strings.ToLower(strings.TrimSpace(userTumorType))
	b := strings.ToLower(strings.TrimSpace(evidenceDisease))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return sameAbbreviationEntry(a, b)
}

// sameAbbreviationEntry reports whether both names map into the same
// abbreviation-table entry, either as the abbreviation itself or as one of
// its expansions.
func sameAbbreviationEntry(a, b string) bool {
	for abbr, expansions := range tumorAbbreviations {
		if matchesEntry(a, abbr, expansions) && matchesEntry(b, abbr, expansions) {
			return true
		}
	}
	return false
}

func matchesEntry(name, abbr string, expansions []string) bool {
	if name == abbr {
		return true
	}
	for _, exp := range expansions {
		if strings.Contains(name, exp) || strings.Contains(exp, name) {
			return true
		}
	}
	return false
}

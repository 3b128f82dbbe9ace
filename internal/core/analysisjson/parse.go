// Package analysisjson turns free-form provider output into a canonical
// DocumentAnalysis. It tolerates prose and code fences around the JSON,
// drops fields that fail schema validation and substitutes defaults for
// anything missing.
package analysisjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/docintel/internal/core/domain"
)

const (
	DefaultDepartment  = "Operations"
	DefaultSafetyScore = 50
	DefaultConfidence  = 0.8

	maxRepairPasses = 8
)

type wireAnalysis struct {
	Summary  *string `json:"summary"`
	Language *string `json:"language"`
	Entities struct {
		Departments []string `json:"departments"`
		Dates       []string `json:"dates"`
		Amounts     []string `json:"amounts"`
		Locations   []string `json:"locations"`
		People      []string `json:"people"`
		Regulations []string `json:"regulations"`
	} `json:"entities"`
	Classification struct {
		Category   *string  `json:"category"`
		Department *string  `json:"department"`
		Priority   *string  `json:"priority"`
		Tags       []string `json:"tags"`
	} `json:"classification"`
	Safety struct {
		HasSafetyIssues *bool    `json:"hasSafetyIssues"`
		SafetyScore     *float64 `json:"safetyScore"`
		Issues          []string `json:"issues"`
		Recommendations []string `json:"recommendations"`
	} `json:"safety"`
	Confidence *float64 `json:"confidence"`
}

var canonicalKeys = []string{"summary", "language", "entities", "classification", "safety", "confidence"}

// Parse extracts the analysis object from raw and maps it onto the
// canonical shape. It returns the JSON pointers of dropped invalid fields.
// A response without a decodable object, or whose object carries no usable
// summary after repair, yields domain.ErrParse.
func Parse(raw string) (domain.DocumentAnalysis, []string, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return domain.DocumentAnalysis{}, nil, err
	}
	normalize(doc)
	dropped := repair(doc)

	body, err := json.Marshal(doc)
	if err != nil {
		return domain.DocumentAnalysis{}, dropped, domain.WrapError(domain.ErrParse, "encode repaired analysis", err)
	}
	var w wireAnalysis
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.DocumentAnalysis{}, dropped, domain.WrapError(domain.ErrParse, "decode repaired analysis", err)
	}
	out := withDefaults(w)
	if out.Summary == "" {
		return domain.DocumentAnalysis{}, dropped, fmt.Errorf("%w: analysis object has no summary", domain.ErrParse)
	}
	return out, dropped, nil
}

// ExtractObject returns the balanced {...} block of raw that looks most
// like an analysis, honouring string quoting. The first decodable block
// carrying a canonical key wins; otherwise the first decodable block. When
// none decodes it falls back to the span between the first '{' and the
// last '}'.
func ExtractObject(raw string) (string, bool) {
	fallback := ""
	for _, block := range candidateBlocks(raw) {
		var obj map[string]any
		if json.Unmarshal([]byte(block), &obj) != nil || obj == nil {
			continue
		}
		if hasCanonicalKey(obj) {
			return block, true
		}
		if fallback == "" {
			fallback = block
		}
	}
	if fallback != "" {
		return fallback, true
	}
	first := strings.IndexByte(raw, '{')
	last := strings.LastIndexByte(raw, '}')
	if first >= 0 && last > first {
		return raw[first : last+1], true
	}
	return "", false
}

func hasCanonicalKey(obj map[string]any) bool {
	for _, key := range canonicalKeys {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func candidateBlocks(raw string) []string {
	out := make([]string, 0, 2)
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		if end, ok := balancedEnd(raw, i); ok {
			out = append(out, raw[i:end+1])
		}
	}
	return out
}

func balancedEnd(raw string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decodeObject(raw string) (map[string]any, error) {
	block, ok := ExtractObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrParse)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return nil, domain.WrapError(domain.ErrParse, "decode analysis object", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: null analysis object", domain.ErrParse)
	}
	if !hasCanonicalKey(doc) {
		return nil, fmt.Errorf("%w: object has no analysis fields", domain.ErrParse)
	}
	return doc, nil
}

// normalize fixes the casing of enums and filters non-string list items
// before validation so near-misses are not dropped.
func normalize(doc map[string]any) {
	if cls, ok := doc["classification"].(map[string]any); ok {
		if raw, ok := cls["category"].(string); ok {
			if c, known := domain.ParseCategory(raw); known {
				cls["category"] = string(c)
			}
		}
		if raw, ok := cls["priority"].(string); ok {
			if p, known := domain.ParsePriority(raw); known {
				cls["priority"] = string(p)
			}
		}
		filterStrings(cls, "tags")
	}
	if ents, ok := doc["entities"].(map[string]any); ok {
		for _, key := range []string{"departments", "dates", "amounts", "locations", "people", "regulations"} {
			filterStrings(ents, key)
		}
	}
	if safety, ok := doc["safety"].(map[string]any); ok {
		filterStrings(safety, "issues")
		filterStrings(safety, "recommendations")
		if raw, ok := safety["safetyScore"].(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				safety["safetyScore"] = f
			}
		}
	}
}

func filterStrings(parent map[string]any, key string) {
	items, ok := parent[key].([]any)
	if !ok {
		return
	}
	kept := make([]any, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if _, dup := seen[s]; dup || s == "" {
			continue
		}
		seen[s] = struct{}{}
		kept = append(kept, s)
	}
	parent[key] = kept
}

// repair validates doc against the analysis schema and deletes every field
// the validator points at until the document passes.
func repair(doc map[string]any) []string {
	dropped := make([]string, 0, 2)
	for pass := 0; pass < maxRepairPasses; pass++ {
		err := compiledSchema.Validate(any(doc))
		if err == nil {
			break
		}
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			break
		}
		locations := leafLocations(verr)
		removed := false
		for _, loc := range locations {
			if deletePointer(doc, loc) {
				dropped = append(dropped, loc)
				removed = true
			}
		}
		if !removed {
			break
		}
	}
	sort.Strings(dropped)
	return dropped
}

func leafLocations(verr *jsonschema.ValidationError) []string {
	seen := make(map[string]struct{})
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			seen[e.InstanceLocation] = struct{}{}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	out := make([]string, 0, len(seen))
	for loc := range seen {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// deletePointer removes the object member a JSON pointer refers to. A
// pointer into an array removes the whole array.
func deletePointer(doc map[string]any, pointer string) bool {
	if pointer == "" || pointer == "/" {
		return false
	}
	segments := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i := range segments {
		segments[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(segments[i])
	}
	if n := len(segments); n > 1 {
		if _, err := strconv.Atoi(segments[n-1]); err == nil {
			segments = segments[:n-1]
		}
	}
	current := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}
	last := segments[len(segments)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}

func withDefaults(w wireAnalysis) domain.DocumentAnalysis {
	out := domain.DocumentAnalysis{
		Entities: domain.Entities{
			Departments: w.Entities.Departments,
			Dates:       w.Entities.Dates,
			Amounts:     w.Entities.Amounts,
			Locations:   w.Entities.Locations,
			People:      w.Entities.People,
			Regulations: w.Entities.Regulations,
		},
		Classification: domain.Classification{
			Category:   domain.CategoryGeneral,
			Department: DefaultDepartment,
			Priority:   domain.PriorityMedium,
			Tags:       w.Classification.Tags,
		},
		Safety: domain.SafetyAssessment{
			SafetyScore:     DefaultSafetyScore,
			Issues:          w.Safety.Issues,
			Recommendations: w.Safety.Recommendations,
		},
		Confidence: DefaultConfidence,
	}
	if w.Summary != nil {
		out.Summary = strings.TrimSpace(*w.Summary)
	}
	if w.Language != nil {
		out.Language = domain.NormalizeLanguage(*w.Language)
	}
	if w.Classification.Category != nil {
		out.Classification.Category, _ = domain.ParseCategory(*w.Classification.Category)
	}
	if w.Classification.Department != nil && strings.TrimSpace(*w.Classification.Department) != "" {
		out.Classification.Department = strings.TrimSpace(*w.Classification.Department)
	}
	if w.Classification.Priority != nil {
		out.Classification.Priority, _ = domain.ParsePriority(*w.Classification.Priority)
	}
	if w.Safety.HasSafetyIssues != nil {
		out.Safety.HasSafetyIssues = *w.Safety.HasSafetyIssues
	}
	if w.Safety.SafetyScore != nil {
		out.Safety.SafetyScore = clampInt(int(*w.Safety.SafetyScore+0.5), 0, 100)
	}
	if w.Confidence != nil {
		out.Confidence = clampFloat(*w.Confidence, 0, 1)
	}

	out.Entities.EnsureNonNil()
	if out.Classification.Tags == nil {
		out.Classification.Tags = []string{}
	}
	if out.Safety.Issues == nil {
		out.Safety.Issues = []string{}
	}
	if out.Safety.Recommendations == nil {
		out.Safety.Recommendations = []string{}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

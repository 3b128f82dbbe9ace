package textfeatures

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds every keyword list the extractor scores against.
type Vocabulary struct {
	Categories  map[string][]string `yaml:"categories"`
	Priorities  map[string][]string `yaml:"priorities"`
	DomainTerms []string            `yaml:"domain_terms"`
	StopWords   []string            `yaml:"stop_words"`
	Importance  []string            `yaml:"importance"`
	Safety      []string            `yaml:"safety"`
	Compliance  []string            `yaml:"compliance"`
	Departments []string            `yaml:"departments"`
	Locations   []string            `yaml:"locations"`
	// NonNameWords are capitalised words that never start or end a person name.
	NonNameWords []string `yaml:"non_name_words"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories: map[string][]string{
			"Safety": {
				"safety", "hazard", "accident", "incident", "emergency", "injury",
				"fire", "evacuation", "inspection", "failure", "derailment", "ppe",
				"unsafe", "near miss",
			},
			"Maintenance": {
				"maintenance", "repair", "overhaul", "servicing", "breakdown",
				"spare part", "lubrication", "work order", "preventive", "corrective",
				"replacement", "wear",
			},
			"Operations": {
				"operations", "operational", "schedule", "timetable", "platform",
				"passenger", "headway", "service", "dispatch", "shift", "ridership",
			},
			"Finance": {
				"budget", "invoice", "payment", "expenditure", "revenue", "cost",
				"finance", "financial", "tender", "procurement", "audit", "purchase",
			},
			"HR": {
				"employee", "staff", "recruitment", "leave", "salary", "payroll",
				"training", "appraisal", "personnel", "human resources", "attendance",
			},
			"Compliance": {
				"compliance", "regulation", "regulatory", "statutory", "mandate",
				"directive", "circular", "standard", "certification", "license",
				"legal",
			},
			"Technical": {
				"signal", "signalling", "cbtc", "system", "software", "engineering",
				"technical", "specification", "traction", "rolling stock", "scada",
				"telecom", "network",
			},
			"Administrative": {
				"memo", "meeting", "minutes", "office", "administration",
				"administrative", "notice", "approval", "correspondence", "policy",
			},
		},
		Priorities: map[string][]string{
			"critical": {"urgent", "critical", "immediately", "emergency", "asap", "life-threatening", "severe"},
			"high":     {"high priority", "important", "priority", "escalate", "major", "significant"},
			"medium":   {"moderate", "normal", "routine review", "medium"},
			"low":      {"low priority", "minor", "informational", "fyi", "optional", "routine"},
		},
		DomainTerms: []string{
			"metro", "train", "railway", "rail", "station", "platform", "track",
			"signal", "signalling", "rolling", "stock", "depot", "coach", "traction",
			"overhead", "catenary", "passenger", "commuter", "ticketing", "turnstile",
			"escalator", "elevator", "viaduct", "tunnel", "derailment", "brake",
			"bogie", "pantograph", "interlocking", "cbtc", "headway", "safety",
			"maintenance", "inspection", "compliance",
		},
		StopWords: []string{
			"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
			"had", "her", "was", "one", "our", "out", "day", "get", "has", "him",
			"his", "how", "man", "new", "now", "old", "see", "two", "way", "who",
			"boy", "did", "its", "let", "put", "say", "she", "too", "use", "this",
			"that", "with", "have", "from", "they", "will", "been", "were", "said",
			"each", "which", "their", "there", "what", "about", "would", "these",
			"other", "into", "than", "then", "them", "some", "when", "also", "only",
			"must", "should", "shall", "such", "upon", "under", "over", "after",
			"before", "being", "where", "while", "those", "through", "within",
		},
		Importance: []string{
			"critical", "urgent", "safety", "compliance", "requirement", "deadline",
			"action", "must", "should", "emergency", "hazard", "risk", "procedure",
			"protocol",
		},
		Safety: []string{
			"safety", "hazard", "accident", "incident", "emergency", "injury", "fire",
			"evacuation", "derailment", "collision", "unsafe", "near miss", "risk",
			"failure", "inspection", "ppe",
		},
		Compliance: []string{
			"compliance", "regulation", "regulatory", "statutory", "audit",
			"certification", "license", "directive", "mandate", "standard",
			"violation", "penalty", "deadline",
		},
		Departments: []string{
			"Engineering", "Operations", "Maintenance", "Safety", "Finance",
			"Human Resources", "Administration", "Legal", "Procurement",
			"Signalling", "Rolling Stock", "Customer Service", "Security",
			"Compliance", "Planning", "Information Technology",
		},
		Locations: []string{
			"Aluva", "Pulinchodu", "Companypady", "Ambattukavu", "Muttom",
			"Kalamassery", "Cochin University", "Pathadipalam", "Edapally",
			"Edappally", "Changampuzha Park", "Palarivattom", "JLN Stadium",
			"Kaloor", "Town Hall", "MG Road", "Maharaja's College", "Ernakulam South",
			"Kadavanthra", "Elamkulam", "Vyttila", "Thaikoodam", "Petta",
			"Vadakkekotta", "SN Junction", "Thrippunithura", "Kakkanad", "Infopark",
			"Kochi", "Ernakulam",
		},
		NonNameWords: []string{
			"The", "This", "That", "These", "Those", "Please", "Contact", "Dear",
			"Kind", "Regards", "Subject", "Platform", "Station", "Depot", "Safety",
			"Engineering", "Operations", "Maintenance", "Finance", "Department",
			"Human", "Resources", "Metro", "Rail", "Railway", "Report", "Notice",
			"Section", "Clause", "Rule", "Act", "All", "Any", "For", "From", "With",
			"January", "February", "March", "April", "May", "June", "July",
			"August", "September", "October", "November", "December", "Monday",
			"Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
			"Urgent", "Immediate", "Action", "Required", "Team", "Office",
			"General", "Manager", "Chief", "Board", "Ltd", "Limited",
		},
	}
}

// LoadVocabulary merges a YAML override file over the defaults. Lists present
// in the file replace the default list; absent lists are kept.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return vocab, fmt.Errorf("read vocabulary file: %w", err)
	}
	var override Vocabulary
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return vocab, fmt.Errorf("parse vocabulary file: %w", err)
	}
	vocab.merge(override)
	return vocab, nil
}

func (v *Vocabulary) merge(o Vocabulary) {
	for name, words := range o.Categories {
		v.Categories[name] = words
	}
	for name, words := range o.Priorities {
		v.Priorities[name] = words
	}
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&v.DomainTerms, o.DomainTerms)
	replace(&v.StopWords, o.StopWords)
	replace(&v.Importance, o.Importance)
	replace(&v.Safety, o.Safety)
	replace(&v.Compliance, o.Compliance)
	replace(&v.Departments, o.Departments)
	replace(&v.Locations, o.Locations)
	replace(&v.NonNameWords, o.NonNameWords)
}

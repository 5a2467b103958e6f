package model

import "sort"

// VocabKind names one of the option vocabularies served by the hierarchy
// service.
type VocabKind string

const (
	VocabStatuses    VocabKind = "statuses"
	VocabUsers       VocabKind = "users"
	VocabCollections VocabKind = "collections"
	VocabSets        VocabKind = "sets"
)

// VocabKinds lists every vocabulary fetched at startup.
var VocabKinds = []VocabKind{VocabStatuses, VocabUsers, VocabCollections, VocabSets}

// Option is one selectable value in a vocabulary.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Vocabulary is an immutable id -> label lookup list fetched once at
// startup. Options are kept sorted by label for dropdown display.
type Vocabulary struct {
	Kind    VocabKind
	Options []Option

	byValue map[string]string
}

// NewVocabulary builds a vocabulary from raw id -> label pairs.
func NewVocabulary(kind VocabKind, labels map[string]string) Vocabulary {
	options := make([]Option, 0, len(labels))
	byValue := make(map[string]string, len(labels))
	for value, label := range labels {
		options = append(options, Option{Value: value, Label: label})
		byValue[value] = label
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].Label != options[j].Label {
			return options[i].Label < options[j].Label
		}
		return options[i].Value < options[j].Value
	})
	return Vocabulary{Kind: kind, Options: options, byValue: byValue}
}

// Label resolves an id to its display label, falling back to the id
// itself when unknown.
func (v Vocabulary) Label(value string) string {
	if label, ok := v.byValue[value]; ok {
		return label
	}
	return value
}

// Len returns the number of options.
func (v Vocabulary) Len() int {
	return len(v.Options)
}

// BoolOptions is the literal pair offered when editing boolean-like
// columns.
var BoolOptions = []Option{
	{Value: "true", Label: "yes"},
	{Value: "false", Label: "no"},
}

package intent

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var vocabYAML []byte

// vocabulary holds the fixed matching tables the analyzer runs against.
// It is loaded once from the embedded YAML at package init.
type vocabulary struct {
	Intents      map[string][]string `yaml:"intents"`
	Applications map[string][]string `yaml:"applications"`
	Verbs        []string            `yaml:"verbs"`
	Complexity   struct {
		Simple              []string `yaml:"simple"`
		Moderate            []string `yaml:"moderate"`
		Complex             []string `yaml:"complex"`
		WorkflowConnectives []string `yaml:"workflow_connectives"`
	} `yaml:"complexity"`
	Risk struct {
		High   []string `yaml:"high"`
		Medium []string `yaml:"medium"`
	} `yaml:"risk"`
	ContextNeeds map[string][]string `yaml:"context_needs"`

	// sorted key lists, for deterministic iteration
	intentKeys      []string
	applicationKeys []string
	contextKeys     []string
}

var vocab = mustLoadVocabulary()

func mustLoadVocabulary() *vocabulary {
	v := &vocabulary{}
	if err := yaml.Unmarshal(vocabYAML, v); err != nil {
		panic(fmt.Sprintf("intent: bad embedded vocabulary: %v", err))
	}
	v.intentKeys = sortedKeys(v.Intents)
	v.applicationKeys = sortedKeys(v.Applications)
	v.contextKeys = sortedKeys(v.ContextNeeds)
	return v
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package agents

import (
	"context"

	"github.com/MimeLyc/blueprint-sub-translator/internal/llm"
)

// Gateway is the single-call LLM boundary the agents run against.
// *llm.Client satisfies it; tests substitute stubs.
type Gateway interface {
	Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error)
}

// Keyword is a notable source-language term with its in-context definition
type Keyword struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// GroundedKeyword carries candidate translations researched for one term
type GroundedKeyword struct {
	Term         string   `json:"term"`
	Translations []string `json:"translations"`
}

// GlossaryEntry is the single chosen translation for one term
type GlossaryEntry struct {
	Term                string `json:"term"`
	ProposedTranslation string `json:"proposed_translation"`
	Justification       string `json:"justification"`
}

// CharacterProfile describes one speaker's voice for translation consistency
type CharacterProfile struct {
	PersonaName   string `json:"persona_name"`
	SpeakingStyle string `json:"speaking_style"`
}

// CulturalAdaptation records one source idiom and its target-culture rendering
type CulturalAdaptation struct {
	Original      string `json:"original"`
	Adaptation    string `json:"adaptation"`
	Justification string `json:"justification"`
}

// Blueprint is the structured translation plan produced by the first
// phase and approved by a human before the batch phase consumes it.
type Blueprint struct {
	Summary             string               `json:"summary"`
	KeyPoints           []string             `json:"key_points"`
	CharacterProfiles   []CharacterProfile   `json:"character_profiles"`
	CulturalAdaptations []CulturalAdaptation `json:"cultural_adaptations"`
	Glossary            []GlossaryEntry      `json:"glossary"`
}

// SyncNote annotates one line that was compressed for on-screen pacing
type SyncNote struct {
	Sequence   int    `json:"sequence"`
	Suggestion string `json:"suggestion"`
}

// envelope types for structured agent responses

type keywordExtraction struct {
	Keywords []Keyword `json:"keywords"`
}

type translationGrounding struct {
	GroundedKeywords []GroundedKeyword `json:"grounded_keywords"`
}

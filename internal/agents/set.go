package agents

import (
	"github.com/MimeLyc/blueprint-sub-translator/internal/llm"
)

// Agent names used in error reporting and logs.
const (
	AgentKeywordExtractor    = "keyword_extractor"
	AgentTranslationGrounder = "translation_grounder"
	AgentBlueprintAssembler  = "blueprint_assembler"
	AgentTranscreator        = "transcreator"
	AgentEditor              = "editor"
	AgentReviewer            = "reviewer"
	AgentPhantomSync         = "phantom_sync"
)

const (
	// Separator between subtitle lines inside one prompt/response.
	lineSeparator = "\n"

	// Placeholder protecting inline line breaks within a single cue so
	// the model does not mistake them for cue boundaries.
	inlineBreakMarker = "[br]"

	structuredTemperature = 0.2
	creativeTemperature   = 0.8
)

// Set is the full collection of prompt-driven operations behind the
// translation pipeline. Every agent is a pure transformation of its
// inputs plus one gateway call; no state is retained between calls.
type Set struct {
	gateway Gateway
	model   string
}

// NewSet creates an agent set running against the given gateway.
// model may be empty when the gateway carries its own default.
func NewSet(gateway Gateway, model string) *Set {
	return &Set{
		gateway: gateway,
		model:   model,
	}
}

func (s *Set) structuredOpts() llm.InvokeOptions {
	return llm.InvokeOptions{
		Model:       s.model,
		Temperature: structuredTemperature,
		Structured:  true,
	}
}

func (s *Set) creativeOpts() llm.InvokeOptions {
	return llm.InvokeOptions{
		Model:       s.model,
		Temperature: creativeTemperature,
	}
}

package agents

import (
	"context"
	"fmt"
	"strings"
)

// ExtractKeywords identifies notable terms (names, places, recurring
// terminology) in the source text. A text without notable terms yields
// an empty list, not an error.
func (s *Set) ExtractKeywords(ctx context.Context, sourceText string) ([]Keyword, error) {
	prompt := buildKeywordPrompt(sourceText)

	raw, err := s.gateway.Invoke(ctx, prompt, s.structuredOpts())
	if err != nil {
		return nil, fmt.Errorf("keyword extraction failed: %w", err)
	}

	extraction, err := decodeStructured[keywordExtraction](raw, AgentKeywordExtractor)
	if err != nil {
		return nil, err
	}

	keywords := make([]Keyword, 0, len(extraction.Keywords))
	for _, kw := range extraction.Keywords {
		if strings.TrimSpace(kw.Term) == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords, nil
}

// GroundTranslations researches candidate translations for each keyword.
// Zero keywords short-circuit to an empty result without a gateway call.
// Terms that come back with fewer candidates than ideal pass through
// as-is; grounding quality is a model concern, not a structural one.
func (s *Set) GroundTranslations(ctx context.Context, targetLanguage string, keywords []Keyword) ([]GroundedKeyword, error) {
	if len(keywords) == 0 {
		return []GroundedKeyword{}, nil
	}

	prompt := buildGroundingPrompt(targetLanguage, keywords)

	raw, err := s.gateway.Invoke(ctx, prompt, s.structuredOpts())
	if err != nil {
		return nil, fmt.Errorf("translation grounding failed: %w", err)
	}

	grounding, err := decodeStructured[translationGrounding](raw, AgentTranslationGrounder)
	if err != nil {
		return nil, err
	}

	grounded := make([]GroundedKeyword, 0, len(grounding.GroundedKeywords))
	for _, gk := range grounding.GroundedKeywords {
		if strings.TrimSpace(gk.Term) == "" {
			continue
		}
		if gk.Translations == nil {
			gk.Translations = []string{}
		}
		grounded = append(grounded, gk)
	}
	return grounded, nil
}

// AssembleBlueprint synthesizes the reviewable translation plan: summary,
// key points, character profiles, cultural adaptations, and exactly one
// glossary entry per grounded keyword.
func (s *Set) AssembleBlueprint(ctx context.Context, sourceText, targetLanguage, tone string, grounded []GroundedKeyword) (*Blueprint, error) {
	prompt := buildBlueprintPrompt(sourceText, targetLanguage, tone, grounded)

	raw, err := s.gateway.Invoke(ctx, prompt, s.structuredOpts())
	if err != nil {
		return nil, fmt.Errorf("blueprint assembly failed: %w", err)
	}

	blueprint, err := decodeStructured[Blueprint](raw, AgentBlueprintAssembler)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(blueprint.Summary) == "" {
		return nil, &MalformedResponseError{
			Agent: AgentBlueprintAssembler,
			Raw:   raw,
			Err:   fmt.Errorf("blueprint summary is empty"),
		}
	}
	if blueprint.Glossary == nil {
		blueprint.Glossary = []GlossaryEntry{}
	}
	for _, entry := range blueprint.Glossary {
		if strings.TrimSpace(entry.Term) == "" || strings.TrimSpace(entry.ProposedTranslation) == "" {
			return nil, &MalformedResponseError{
				Agent: AgentBlueprintAssembler,
				Raw:   raw,
				Err:   fmt.Errorf("glossary entry is missing term or translation"),
			}
		}
	}

	return &blueprint, nil
}

func buildKeywordPrompt(sourceText string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a terminology analyst for subtitle localization. Identify the notable terms in the subtitle text below: character names, places, organizations, and recurring domain terminology.\n\n")

	prompt.WriteString("=== RESPONSE FORMAT ===\n")
	prompt.WriteString("Return ONLY a JSON object of the form:\n")
	prompt.WriteString(`{"keywords": [{"term": "...", "definition": "..."}]}` + "\n")
	prompt.WriteString("Each definition explains the term's role in this text in one sentence.\n")
	prompt.WriteString("If there are no notable terms, return {\"keywords\": []}.\n")
	prompt.WriteString("No markdown, no explanations.\n\n")

	prompt.WriteString("=== SUBTITLE TEXT ===\n")
	prompt.WriteString(sourceText)

	return prompt.String()
}

func buildGroundingPrompt(targetLanguage string, keywords []Keyword) string {
	var prompt strings.Builder

	prompt.WriteString("You are a localization researcher. For each term below, propose the best " + targetLanguage + " translation candidates, ordered from most to least established. Prefer official or widely-used renderings; include at least one candidate per term.\n\n")

	prompt.WriteString("=== TERMS ===\n")
	for _, kw := range keywords {
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", kw.Term, kw.Definition))
	}

	prompt.WriteString("\n=== RESPONSE FORMAT ===\n")
	prompt.WriteString("Return ONLY a JSON object of the form:\n")
	prompt.WriteString(`{"grounded_keywords": [{"term": "...", "translations": ["...", "..."]}]}` + "\n")
	prompt.WriteString("Keep every input term, in the same order. No markdown, no explanations.\n")

	return prompt.String()
}

func buildBlueprintPrompt(sourceText, targetLanguage, tone string, grounded []GroundedKeyword) string {
	var prompt strings.Builder

	prompt.WriteString("You are a translation planner preparing a " + targetLanguage + " localization of the subtitle text below. Produce a translation blueprint for a human reviewer. Requested tone: " + tone + ".\n\n")

	if len(grounded) > 0 {
		prompt.WriteString("=== RESEARCHED TERMS ===\n")
		for _, gk := range grounded {
			prompt.WriteString(fmt.Sprintf("- %s: candidates [%s]\n", gk.Term, strings.Join(gk.Translations, ", ")))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("=== RESPONSE FORMAT ===\n")
	prompt.WriteString("Return ONLY a JSON object of the form:\n")
	prompt.WriteString(`{"summary": "...", "key_points": ["..."], "character_profiles": [{"persona_name": "...", "speaking_style": "..."}], "cultural_adaptations": [{"original": "...", "adaptation": "...", "justification": "..."}], "glossary": [{"term": "...", "proposed_translation": "...", "justification": "..."}]}` + "\n\n")

	prompt.WriteString("RULES:\n")
	prompt.WriteString("1. Include exactly one glossary entry per researched term, choosing exactly one candidate translation.\n")
	prompt.WriteString("2. Each glossary justification must tie the choice to the requested tone.\n")
	prompt.WriteString("3. If no terms were researched, the glossary must be an empty array.\n")
	prompt.WriteString("4. No markdown, no explanations outside the JSON object.\n\n")

	prompt.WriteString("=== SUBTITLE TEXT ===\n")
	prompt.WriteString(sourceText)

	return prompt.String()
}

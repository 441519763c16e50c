package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/MimeLyc/blueprint-sub-translator/internal/subtitle"
)

// CPSThreshold is the reading speed (characters per second) above which
// a translated line must be compressed for on-screen pacing.
const CPSThreshold = 22.0

// CompressionMarker prefixes lines that phantom sync rewrote. It stays
// in the final output so downstream consumers can tell compressed lines
// apart; StripCompressionMarker removes it when a clean rendering is
// wanted.
const CompressionMarker = "[compressed] "

// Transcreate produces the first-draft translation of one batch.
// rollingContext is the tail of the previous batch's reviewed output,
// passed through for continuity only.
func (s *Set) Transcreate(ctx context.Context, batch []subtitle.Line, rollingContext string, blueprint *Blueprint, targetLanguage, tone string) ([]string, error) {
	prompt := buildTranscreatePrompt(batch, rollingContext, blueprint, targetLanguage, tone)
	return s.runBatchAgent(ctx, AgentTranscreator, prompt, len(batch))
}

// Edit polishes a draft translation for fluency and consistency with the
// blueprint.
func (s *Set) Edit(ctx context.Context, batch []subtitle.Line, draft []string, blueprint *Blueprint, targetLanguage, tone string) ([]string, error) {
	prompt := buildEditPrompt(batch, draft, blueprint, targetLanguage, tone)
	return s.runBatchAgent(ctx, AgentEditor, prompt, len(batch))
}

// Review is the final content-accuracy pass over an edited batch.
func (s *Set) Review(ctx context.Context, batch []subtitle.Line, edited []string, blueprint *Blueprint, targetLanguage, tone string) ([]string, error) {
	prompt := buildReviewPrompt(batch, edited, blueprint, targetLanguage, tone)
	return s.runBatchAgent(ctx, AgentReviewer, prompt, len(batch))
}

// PhantomSync checks each approved line's reading speed against the CPS
// threshold. Lines within the threshold pass through byte-for-byte;
// over-threshold lines are rewritten shorter, prefixed with
// CompressionMarker, and reported as sync notes. When no line exceeds
// the threshold no gateway call is made at all.
func (s *Set) PhantomSync(ctx context.Context, batch []subtitle.Line, approved []string) ([]string, []SyncNote, error) {
	if len(approved) != len(batch) {
		return nil, nil, fmt.Errorf("phantom sync input mismatch: %d lines for %d cues", len(approved), len(batch))
	}

	type flagged struct {
		pos    int
		cps    float64
		budget int
	}
	var over []flagged
	for i, text := range approved {
		cps, ok := readingSpeed(text, batch[i].DurationSeconds())
		if ok && cps > CPSThreshold {
			budget := int(math.Floor(batch[i].DurationSeconds() * CPSThreshold))
			over = append(over, flagged{pos: i, cps: cps, budget: budget})
		}
	}

	synced := append([]string(nil), approved...)
	if len(over) == 0 {
		return synced, nil, nil
	}

	flaggedTexts := make([]string, len(over))
	budgets := make([]int, len(over))
	for i, f := range over {
		flaggedTexts[i] = approved[f.pos]
		budgets[i] = f.budget
	}

	prompt := buildCompressionPrompt(flaggedTexts, budgets)
	rewritten, err := s.runBatchAgent(ctx, AgentPhantomSync, prompt, len(over))
	if err != nil {
		return nil, nil, err
	}

	notes := make([]SyncNote, 0, len(over))
	for i, f := range over {
		compressed := strings.TrimSpace(strings.TrimPrefix(rewritten[i], strings.TrimSpace(CompressionMarker)))
		synced[f.pos] = CompressionMarker + compressed
		notes = append(notes, SyncNote{
			Sequence: batch[f.pos].Index,
			Suggestion: fmt.Sprintf("compressed for pacing (%.1f cps over %.0f cps limit): %s",
				f.cps, CPSThreshold, compressed),
		})
	}
	return synced, notes, nil
}

// StripCompressionMarker removes the phantom sync annotation, if present.
func StripCompressionMarker(line string) string {
	return strings.TrimPrefix(line, CompressionMarker)
}

// readingSpeed returns characters per second for a line. A line with no
// measurable duration reports ok=false instead of dividing by zero.
func readingSpeed(text string, durationSeconds float64) (float64, bool) {
	if durationSeconds <= 0 {
		return 0, false
	}
	chars := utf8.RuneCountInString(strings.ReplaceAll(text, "\n", ""))
	return float64(chars) / durationSeconds, true
}

// runBatchAgent performs one gateway call and enforces the line-count
// contract on the parsed response.
func (s *Set) runBatchAgent(ctx context.Context, agentName, prompt string, expected int) ([]string, error) {
	raw, err := s.gateway.Invoke(ctx, prompt, s.creativeOpts())
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", agentName, err)
	}

	lines := splitAgentLines(raw)
	if len(lines) != expected {
		return nil, &ContractViolationError{
			Agent:    agentName,
			Expected: expected,
			Actual:   len(lines),
		}
	}
	return lines, nil
}

// joinCueTexts flattens cue texts into one prompt block, protecting
// inline breaks within a cue so the model cannot confuse them with cue
// boundaries.
func joinCueTexts(texts []string) string {
	protected := make([]string, len(texts))
	for i, text := range texts {
		protected[i] = strings.ReplaceAll(text, "\n", inlineBreakMarker)
	}
	return strings.Join(protected, lineSeparator)
}

func batchSourceTexts(batch []subtitle.Line) []string {
	texts := make([]string, len(batch))
	for i, line := range batch {
		texts[i] = line.Text
	}
	return texts
}

// splitAgentLines parses a newline-delimited batch response, restoring
// protected inline breaks.
func splitAgentLines(raw string) []string {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil
	}
	parts := strings.Split(content, lineSeparator)
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(strings.TrimSpace(part), inlineBreakMarker, "\n")
	}
	return parts
}

func writeBlueprintSection(prompt *strings.Builder, blueprint *Blueprint, tone string) {
	prompt.WriteString("=== TRANSLATION BLUEPRINT ===\n")
	prompt.WriteString("Tone: " + tone + "\n")
	if blueprint == nil {
		return
	}
	if blueprint.Summary != "" {
		prompt.WriteString("Summary: " + blueprint.Summary + "\n")
	}
	for _, point := range blueprint.KeyPoints {
		prompt.WriteString("- " + point + "\n")
	}
	if len(blueprint.CharacterProfiles) > 0 {
		prompt.WriteString("Character voices:\n")
		for _, profile := range blueprint.CharacterProfiles {
			prompt.WriteString(fmt.Sprintf("  - %s: %s\n", profile.PersonaName, profile.SpeakingStyle))
		}
	}
	if len(blueprint.CulturalAdaptations) > 0 {
		prompt.WriteString("Cultural adaptations:\n")
		for _, adaptation := range blueprint.CulturalAdaptations {
			prompt.WriteString(fmt.Sprintf("  - %q -> %q (%s)\n", adaptation.Original, adaptation.Adaptation, adaptation.Justification))
		}
	}
	if len(blueprint.Glossary) > 0 {
		prompt.WriteString("Glossary (mandatory renderings):\n")
		for _, entry := range blueprint.Glossary {
			prompt.WriteString(fmt.Sprintf("  - %s -> %s\n", entry.Term, entry.ProposedTranslation))
		}
	}
}

func writeOutputContract(prompt *strings.Builder, count int) {
	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	fmt.Fprintf(prompt, "Return ONLY the subtitle lines, one per line, exactly %d lines.\n", count)
	prompt.WriteString("Preserve " + inlineBreakMarker + " inline break markers as-is.\n")
	prompt.WriteString("Do not include numbering, explanations, or any additional text.\n")
}

func buildTranscreatePrompt(batch []subtitle.Line, rollingContext string, blueprint *Blueprint, targetLanguage, tone string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a subtitle transcreator. Translate the subtitle lines below into " + targetLanguage + ", adapting freely where a literal rendering would fall flat, while preserving meaning.\n\n")
	writeBlueprintSection(&prompt, blueprint, tone)

	if rollingContext != "" {
		prompt.WriteString("\n=== PREVIOUS BATCH (for continuity) ===\n")
		prompt.WriteString(rollingContext + "\n")
	}

	writeOutputContract(&prompt, len(batch))

	prompt.WriteString("\n=== SUBTITLE LINES ===\n")
	prompt.WriteString(joinCueTexts(batchSourceTexts(batch)))

	return prompt.String()
}

func buildEditPrompt(batch []subtitle.Line, draft []string, blueprint *Blueprint, targetLanguage, tone string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a subtitle editor. Polish the draft " + targetLanguage + " translation below for fluency, register, and blueprint consistency. Keep lines aligned one-to-one with the source.\n\n")
	writeBlueprintSection(&prompt, blueprint, tone)
	writeOutputContract(&prompt, len(batch))

	prompt.WriteString("\n=== SOURCE LINES ===\n")
	prompt.WriteString(joinCueTexts(batchSourceTexts(batch)))
	prompt.WriteString("\n\n=== DRAFT TRANSLATION ===\n")
	prompt.WriteString(joinCueTexts(draft))

	return prompt.String()
}

func buildReviewPrompt(batch []subtitle.Line, edited []string, blueprint *Blueprint, targetLanguage, tone string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a subtitle quality reviewer. Verify the " + targetLanguage + " translation below against the source for accuracy and glossary compliance, correcting only where needed.\n\n")
	writeBlueprintSection(&prompt, blueprint, tone)
	writeOutputContract(&prompt, len(batch))

	prompt.WriteString("\n=== SOURCE LINES ===\n")
	prompt.WriteString(joinCueTexts(batchSourceTexts(batch)))
	prompt.WriteString("\n\n=== EDITED TRANSLATION ===\n")
	prompt.WriteString(joinCueTexts(edited))

	return prompt.String()
}

func buildCompressionPrompt(flagged []string, budgets []int) string {
	var prompt strings.Builder

	prompt.WriteString("You are a subtitle pacing specialist. Each line below reads too fast for its on-screen duration. Rewrite each line to fit its character budget while preserving meaning.\n\n")

	prompt.WriteString("=== LINES AND BUDGETS ===\n")
	for i, text := range flagged {
		fmt.Fprintf(&prompt, "%d. (max %d characters) %s\n", i+1, budgets[i], strings.ReplaceAll(text, "\n", inlineBreakMarker))
	}

	writeOutputContract(&prompt, len(flagged))
	return prompt.String()
}

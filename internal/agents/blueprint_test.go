package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MimeLyc/blueprint-sub-translator/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway replays canned responses and records prompts.
type stubGateway struct {
	responses []string
	err       error

	calls   int
	prompts []string
	opts    []llm.InvokeOptions
}

func (g *stubGateway) Invoke(_ context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", fmt.Errorf("stub gateway has no response for call %d", g.calls)
	}
	response := g.responses[0]
	g.responses = g.responses[1:]
	return response, nil
}

func TestExtractKeywords(t *testing.T) {
	gateway := &stubGateway{responses: []string{
		`{"keywords":[{"term":"Winterfell","definition":"a castle"},{"term":"","definition":"dropped"}]}`,
	}}
	set := NewSet(gateway, "test-model")

	keywords, err := set.ExtractKeywords(context.Background(), "some subtitle text")
	require.NoError(t, err)
	require.Len(t, keywords, 1)
	assert.Equal(t, "Winterfell", keywords[0].Term)

	require.Len(t, gateway.opts, 1)
	assert.True(t, gateway.opts[0].Structured)
	assert.Equal(t, "test-model", gateway.opts[0].Model)
}

func TestExtractKeywords_EmptyListIsNotAnError(t *testing.T) {
	gateway := &stubGateway{responses: []string{`{"keywords":[]}`}}
	set := NewSet(gateway, "test-model")

	keywords, err := set.ExtractKeywords(context.Background(), "nothing notable here")
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestGroundTranslations_SkipsGatewayForZeroKeywords(t *testing.T) {
	gateway := &stubGateway{}
	set := NewSet(gateway, "test-model")

	grounded, err := set.GroundTranslations(context.Background(), "German", nil)
	require.NoError(t, err)
	assert.Empty(t, grounded)
	assert.Zero(t, gateway.calls)
}

func TestGroundTranslations_PassesThroughSparseCandidates(t *testing.T) {
	gateway := &stubGateway{responses: []string{
		`{"grounded_keywords":[{"term":"Winterfell","translations":["Winterfell"]},{"term":"Godswood","translations":[]}]}`,
	}}
	set := NewSet(gateway, "test-model")

	grounded, err := set.GroundTranslations(context.Background(), "German", []Keyword{
		{Term: "Winterfell", Definition: "a castle"},
		{Term: "Godswood", Definition: "a grove"},
	})
	require.NoError(t, err)
	require.Len(t, grounded, 2)
	assert.Empty(t, grounded[1].Translations)
	assert.NotNil(t, grounded[1].Translations)
}

func TestAssembleBlueprint(t *testing.T) {
	gateway := &stubGateway{responses: []string{`{
		"summary": "A tense political drama.",
		"key_points": ["keep formal register"],
		"character_profiles": [{"persona_name": "Ned", "speaking_style": "terse"}],
		"cultural_adaptations": [],
		"glossary": [{"term": "Winterfell", "proposed_translation": "Winterfell", "justification": "established name, fits the formal tone"}]
	}`}}
	set := NewSet(gateway, "test-model")

	blueprint, err := set.AssembleBlueprint(context.Background(), "text", "German", "Formal", []GroundedKeyword{
		{Term: "Winterfell", Translations: []string{"Winterfell"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A tense political drama.", blueprint.Summary)
	require.Len(t, blueprint.Glossary, 1)
	assert.Equal(t, "Winterfell", blueprint.Glossary[0].ProposedTranslation)

	// tone and candidates make it into the prompt
	require.Len(t, gateway.prompts, 1)
	assert.Contains(t, gateway.prompts[0], "Formal")
	assert.Contains(t, gateway.prompts[0], "Winterfell")
}

func TestAssembleBlueprint_RejectsIncompleteGlossary(t *testing.T) {
	gateway := &stubGateway{responses: []string{`{
		"summary": "ok",
		"glossary": [{"term": "Winterfell", "proposed_translation": "", "justification": "none"}]
	}`}}
	set := NewSet(gateway, "test-model")

	_, err := set.AssembleBlueprint(context.Background(), "text", "German", "Formal", nil)
	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, AgentBlueprintAssembler, malformed.Agent)
}

func TestBlueprintAgents_PropagateGatewayFailure(t *testing.T) {
	gateway := &stubGateway{err: fmt.Errorf("provider down")}
	set := NewSet(gateway, "test-model")

	_, err := set.ExtractKeywords(context.Background(), "text")
	require.ErrorContains(t, err, "provider down")

	_, err = set.GroundTranslations(context.Background(), "German", []Keyword{{Term: "x"}})
	require.ErrorContains(t, err, "provider down")

	_, err = set.AssembleBlueprint(context.Background(), "text", "German", "Neutral", nil)
	require.ErrorContains(t, err, "provider down")
}

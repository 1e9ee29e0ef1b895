package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"typologyrag/internal/llm"
	"typologyrag/internal/ontology"
)

func loadOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	o, err := ontology.Load("../../../configs/ontology.yaml")
	require.NoError(t, err)
	return o
}

func TestExtract_ParsesWellFormedJSON(t *testing.T) {
	onto := loadOntology(t)
	fake := &llm.FakeCompleter{Responses: []string{`{
		"content_type": "type_overview",
		"difficulty": "beginner",
		"primary_category": "type_overview",
		"types_discussed": ["INTJ"],
		"functions_covered": ["Ni"],
		"function_positions": ["Ni_hero"],
		"relationship_type": "none",
		"quadra": "alpha",
		"temple": "mind",
		"octagram_states": ["UDSF"],
		"pair_dynamics": [],
		"archetypes": [],
		"interaction_style_details": [],
		"key_concepts": ["dominant function"],
		"teaching_focus": "basics",
		"prerequisite_knowledge": [],
		"target_audience": "beginner",
		"tag_confidence": 0.9
	}`}}
	e := New(fake, onto)

	rec := e.Extract(context.Background(), "[1] Intro to INTJ", "lecture text")
	require.Equal(t, "INTJ", rec.TypesDiscussed[0])
	require.Equal(t, 0.9, rec.TagConfidence)
	require.Len(t, fake.Calls, 1)
}

func TestExtract_StripsFencedCodeWrapper(t *testing.T) {
	onto := loadOntology(t)
	fake := &llm.FakeCompleter{Responses: []string{"```json\n{\"content_type\":\"type_overview\",\"tag_confidence\":0.5}\n```"}}
	e := New(fake, onto)

	rec := e.Extract(context.Background(), "source", "text")
	require.Equal(t, "type_overview", rec.ContentType)
}

func TestExtract_RetriesOnceThenFallsBackToEmpty(t *testing.T) {
	onto := loadOntology(t)
	fake := &llm.FakeCompleter{Responses: []string{"not json", "still not json"}}
	e := New(fake, onto)

	rec := e.Extract(context.Background(), "source", "text")
	require.Equal(t, 0.0, rec.TagConfidence)
	require.Equal(t, "", rec.ContentType)
	require.Len(t, fake.Calls, 2, "expected exactly one retry")
}

func TestValidate_DropsUnknownEnumArrayItemsWithWarning(t *testing.T) {
	onto := loadOntology(t)
	rec := Record{
		TypesDiscussed:   []string{"INTJ", "XXXX"},
		FunctionsCovered: []string{"Te", "zz"},
	}
	out, warnings := Validate(onto, rec)
	require.Equal(t, []string{"INTJ"}, out.TypesDiscussed)
	require.Equal(t, []string{"Te"}, out.FunctionsCovered)
	require.Equal(t, 1, warnings["types_discussed"])
	require.Equal(t, 1, warnings["functions_covered"])
}

func TestValidate_LowercasesAndFallsBackQuadraTemple(t *testing.T) {
	onto := loadOntology(t)
	rec := Record{Quadra: "ALPHA", Temple: "bogus"}
	out, _ := Validate(onto, rec)
	require.Equal(t, "alpha", out.Quadra)
	require.Equal(t, "none", out.Temple)
}

func TestValidate_ClampsTagConfidence(t *testing.T) {
	onto := loadOntology(t)
	out, _ := Validate(onto, Record{TagConfidence: 1.7})
	require.Equal(t, 1.0, out.TagConfidence)

	out, _ = Validate(onto, Record{TagConfidence: -0.3})
	require.Equal(t, 0.0, out.TagConfidence)
}

func TestValidate_CapsKeyConceptsToTen(t *testing.T) {
	onto := loadOntology(t)
	concepts := make([]string, 15)
	for i := range concepts {
		concepts[i] = "concept"
	}
	out, _ := Validate(onto, Record{KeyConcepts: concepts})
	require.Len(t, out.KeyConcepts, maxKeyConcepts)
}

func TestValidate_RejectsMalformedFunctionPosition(t *testing.T) {
	onto := loadOntology(t)
	out, warnings := Validate(onto, Record{FunctionPositions: []string{"Ni_hero", "bogus"}})
	require.Equal(t, []string{"Ni_hero"}, out.FunctionPositions)
	require.Equal(t, 1, warnings["function_positions"])
}

func TestParseSeasonEpisode_FromBracketConvention(t *testing.T) {
	season, episode := ParseSeasonEpisode("[22.3] Talking about ENFPs", "", "")
	require.Equal(t, "22", season)
	require.Equal(t, "3", episode)
}

func TestParseSeasonEpisode_DoesNotOverrideExtractorValues(t *testing.T) {
	season, episode := ParseSeasonEpisode("[22.3] Talking about ENFPs", "5", "1")
	require.Equal(t, "5", season)
	require.Equal(t, "1", episode)
}

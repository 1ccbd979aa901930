package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/intervuo/internal/models"
)

func TestParseResultStrict(t *testing.T) {
	res, err := ParseResult(`{
		"summary": " Solid answers. ",
		"analysis": {"strengths": ["clear"], "areas_for_improvement": ["depth"]},
		"scores": {"clarity": 8, "completeness": 7, "relevance": 9, "confidence": 6, "structure": 7, "problem_solving": null}
	}`)
	require.NoError(t, err)
	assert.Equal(t, "Solid answers.", res.Summary)
	assert.Equal(t, []string{"clear"}, res.Analysis.Strengths)
	assert.Equal(t, []string{"depth"}, res.Analysis.AreasForImprovement)

	v, ok := res.Score(models.MetricClarity)
	require.True(t, ok)
	assert.Equal(t, 8, v)
	_, ok = res.Score(models.MetricProblemSolving)
	assert.False(t, ok)
}

func TestParseResultRecoversWrappedObject(t *testing.T) {
	res, err := ParseResult("Here is the result: {\"summary\":\"ok\",\"scores\":{}} thanks")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
	assert.Empty(t, res.Analysis.Strengths)
	assert.NotNil(t, res.Analysis.Strengths)
	require.Len(t, res.Scores, len(models.Metrics))
	for _, m := range models.Metrics {
		assert.Nil(t, res.Scores[m], m)
	}
}

func TestParseResultCodeFence(t *testing.T) {
	res, err := ParseResult("```json\n{\"summary\":\"fenced\",\"scores\":{\"structure\":5}}\n```")
	require.NoError(t, err)
	assert.Equal(t, "fenced", res.Summary)
	v, ok := res.Score(models.MetricStructure)
	require.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestParseResultNormalizesScores(t *testing.T) {
	res, err := ParseResult(`{"summary":"s","scores":{
		"clarity": "7",
		"completeness": "N/A",
		"relevance": 11,
		"confidence": 0,
		"structure": 6.5,
		"problem_solving": 10.0,
		"charisma": 9
	}}`)
	require.NoError(t, err)

	v, ok := res.Score(models.MetricClarity)
	require.True(t, ok)
	assert.Equal(t, 7, v)
	v, ok = res.Score(models.MetricProblemSolving)
	require.True(t, ok)
	assert.Equal(t, 10, v)

	for _, m := range []string{models.MetricCompleteness, models.MetricRelevance, models.MetricConfidence, models.MetricStructure} {
		_, ok := res.Score(m)
		assert.False(t, ok, m)
	}
	_, present := res.Scores["charisma"]
	assert.False(t, present)
}

func TestParseResultFailures(t *testing.T) {
	for name, input := range map[string]string{
		"empty":      "   ",
		"no braces":  "I could not analyse this transcript.",
		"reversed":   "} nope {",
		"malformed":  "result: {\"summary\": \"unterminated} done",
		"not object": "[1, 2, 3]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult(input)
			assert.ErrorIs(t, err, ErrAnalysisFailed)
		})
	}
}

package models

const (
	MetricClarity        = "clarity"
	MetricCompleteness   = "completeness"
	MetricRelevance      = "relevance"
	MetricConfidence     = "confidence"
	MetricStructure      = "structure"
	MetricProblemSolving = "problem_solving"
)

// Metrics lists the scored metrics in display order.
var Metrics = []string{
	MetricClarity,
	MetricCompleteness,
	MetricRelevance,
	MetricConfidence,
	MetricStructure,
	MetricProblemSolving,
}

type Feedback struct {
	Strengths           []string `bson:"strengths" json:"strengths"`
	AreasForImprovement []string `bson:"areas_for_improvement" json:"areas_for_improvement"`
}

// AnalysisResult is the LLM verdict on one transcript. A nil score means the
// metric was not applicable.
type AnalysisResult struct {
	Summary  string          `bson:"summary" json:"summary"`
	Analysis Feedback        `bson:"analysis" json:"analysis"`
	Scores   map[string]*int `bson:"scores" json:"scores"`
}

func (r *AnalysisResult) Score(metric string) (int, bool) {
	if r == nil || r.Scores == nil {
		return 0, false
	}
	v, ok := r.Scores[metric]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

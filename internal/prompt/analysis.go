package prompt

import (
	"fmt"
	"strings"

	"github.com/yoockh/intervuo/internal/models"
)

const AnalystSystem = "You are an expert interview analyst. Analyze the provided transcript and return ONLY a valid JSON object " +
	"with the requested summary, analysis, and scores, based strictly on the transcript content."

// FormatTranscript renders one "Interviewer: ..." / "Candidate: ..." line per entry.
func FormatTranscript(entries []models.TranscriptEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Speaker.Label()+": "+e.Text)
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Analysis builds the user message for transcript analysis.
func Analysis(entries []models.TranscriptEntry, cfg models.InterviewConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following interview transcript for a %s %s (%s type).\n",
		string(cfg.Level), orDefault(cfg.Role, "position"), orDefault(string(cfg.InterviewType), "general"))
	fmt.Fprintf(&b, "The candidate is applying to %s.\n\n", orDefault(cfg.Company, "the company"))

	b.WriteString("Transcript:\n---\n")
	b.WriteString(FormatTranscript(entries))
	b.WriteString("\n---\n\n")

	b.WriteString(`Based **only** on the provided transcript, please provide:
1. A concise summary of the interview conversation (2-4 sentences).
2. An analysis of the candidate's performance, identifying key strengths and areas for improvement. Be specific and provide examples from the transcript where possible.
3. Assign scores (1-10, where 1 is poor and 10 is excellent) for the following metrics based *solely* on the candidate's responses in the transcript:
   * **Clarity:** How clear and easy to understand were the candidate's responses?
   * **Completeness:** Did the candidate fully answer the questions asked?
   * **Relevance:** Were the candidate's answers relevant to the questions?
   * **Confidence:** How confident did the candidate appear through their language? (Infer based on phrasing, hesitation is not captured in text)
   * **Structure:** (Especially for behavioral/system design) Were the answers well-structured (e.g., using STAR method for behavioral, logical steps for design)? Score N/A if not applicable.
   * **Problem-Solving:** (Especially for technical/coding/system design) How effectively did the candidate approach problems or technical questions? Score N/A if not applicable.

Format the entire output as a single JSON object with the following structure:
{
  "summary": "...",
  "analysis": {
    "strengths": ["...", "..."],
    "areas_for_improvement": ["...", "..."]
  },
  "scores": {
    "clarity": <score_integer>,
    "completeness": <score_integer>,
    "relevance": <score_integer>,
    "confidence": <score_integer>,
    "structure": <score_integer_or_null_if_NA>,
    "problem_solving": <score_integer_or_null_if_NA>
  }
}
Ensure the output is valid JSON. Do not include any text outside the JSON object.`)
	return b.String()
}

// Package prompt builds the interviewer and analyst prompts sent to the
// external voice agent and LLM.
package prompt

import (
	"fmt"
	"strings"

	"github.com/yoockh/intervuo/internal/models"
)

const interviewProcess = "\n\nInterview Process:\n" +
	"1. Brief introduction and role overview.\n" +
	"2. Ask relevant questions based on the interview type.\n" +
	"3. Listen actively to the candidate's responses, asking clarifying follow-up questions if needed.\n" +
	"4. Conclude the interview gracefully.\n" +
	"5. Provide constructive feedback (this part is for internal use/later analysis, do not say this to the candidate during the interview flow)."

// SystemPrompt builds the voice agent's system prompt. Skills come from the
// candidate profile and may be empty.
func SystemPrompt(cfg models.InterviewConfig, skills []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI interviewer representing %s for a %s %s position. ", cfg.Company, cfg.Level, cfg.Role)

	switch cfg.InterviewType {
	case models.TypeTechnical:
		b.WriteString("This is a technical interview. ")
		writeLanguage(&b, cfg.PreferredLanguage)
		b.WriteString("Ask relevant technical questions focusing on algorithms, data structures, and problem-solving.")
	case models.TypeBehavioral:
		b.WriteString("This is a behavioral interview. Ask questions to assess teamwork, problem-solving, leadership, and communication skills using the STAR method format where applicable.")
	case models.TypeSystemDesign:
		b.WriteString("This is a system design interview. Present a high-level design challenge related to scalable systems.")
	case models.TypeCoding:
		b.WriteString("This is a coding interview. ")
		writeLanguage(&b, cfg.PreferredLanguage)
		b.WriteString("Present a moderately difficult coding problem suitable for the role and level. Evaluate the candidate's approach, efficiency, and code clarity.")
	default:
		b.WriteString("Conduct a general interview for the specified role and company.")
	}

	if s := joinNonEmpty(skills); s != "" {
		fmt.Fprintf(&b, " The candidate lists these skills: %s.", s)
	}

	b.WriteString(interviewProcess)
	return b.String()
}

func writeLanguage(b *strings.Builder, lang string) {
	if lang != "" {
		fmt.Fprintf(b, "Preferred language: %s. ", lang)
	}
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

// Greeting is the agent's uninterruptible opening line.
func Greeting(cfg models.InterviewConfig) string {
	return fmt.Sprintf("Hello! I'm conducting this mock interview on behalf of %s for the %s %s role. "+
		"Today, we'll focus on a %s interview format. Are you ready to begin?",
		cfg.Company, cfg.Level, cfg.Role, cfg.InterviewType)
}

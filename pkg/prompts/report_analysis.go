// Package prompts holds the LLM prompts used by the server and the parsing
// of their replies.
package prompts

import (
	"github.com/ekaya-inc/ekaya-notebook/pkg/llm"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// ReportAnalysisTemperature keeps categorization close to deterministic.
const ReportAnalysisTemperature = 0.2

// ReportAnalysisSystem is the system message for analyze-report. The report
// text itself is sent unchanged as the user message.
const ReportAnalysisSystem = `You analyze clinical radiology report language.
Do not diagnose, recommend treatment or give medical advice.

Classify the existing text of the report excerpt into three categories:
1. Explicit findings: facts directly stated or observed
2. Implied concerns: concerns suggested by wording, without certainty
3. Hedging or non-actionable language: cautious, legal or uncertain phrases

Do not add information, infer outcomes or recommend next steps.
Use neutral clinical language and bullet points only.
If a category has no content, write "None stated."

Respond in this exact JSON format:
{
  "explicit": "• bullet point 1\n• bullet point 2",
  "implied": "• bullet point 1\n• bullet point 2",
  "hedging": "• bullet point 1\n• bullet point 2"
}`

// ParseReportAnalysis reads the JSON object out of the model reply, fenced
// or bare. A reply with no parseable object is returned whole as explicit
// findings.
func ParseReportAnalysis(content string) *models.ReportCategories {
	result, err := llm.ParseJSONResponse[models.ReportCategories](content)
	if err != nil {
		return &models.ReportCategories{Explicit: content}
	}
	return &result
}

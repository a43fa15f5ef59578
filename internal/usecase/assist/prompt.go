package assist

import (
	"fmt"
	"strings"
)

var styleGuides = map[Style]string{
	StyleProfessional: "Use a polished, professional tone with strong action verbs.",
	StyleConcise:      "Be brief. Keep each bullet to one line and drop filler words.",
	StyleTechnical:    "Emphasise tools, languages, systems and measurable engineering outcomes.",
}

func rewritePrompt(rawText string, style Style) string {
	var b strings.Builder
	b.WriteString("Rewrite the résumé below. ")
	b.WriteString(styleGuides[style])
	b.WriteString(" Keep every fact; do not invent employers, dates or numbers.\n")
	b.WriteString(`Reply with JSON only: {"rewritten": "<full résumé text>", "bullets": ["<key achievement>", ...]}`)
	fmt.Fprintf(&b, "\n\nRésumé:\n%s\n", strings.TrimSpace(rawText))
	return b.String()
}

func coverLetterPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(
		"Write a cover letter of three to four short paragraphs for the job below, "+
			"using only experience found in the résumé. Reply with the letter text only.\n\n"+
			"Job description:\n%s\n\nRésumé:\n%s\n",
		strings.TrimSpace(jobDescription), strings.TrimSpace(resumeText),
	)
}

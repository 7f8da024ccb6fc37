package app

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"clausewise/internal/model"
)

const (
	promptClassify  = "classify"
	promptAssess    = "assess"
	promptSummarize = "summarize"
	promptAnswer    = "answer"
)

const systemLegalAnalyst = "You are a careful legal document analyst. You explain contracts to non-lawyers in plain language. " +
	"You reply with a single JSON object and nothing else."

var promptTemplates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`
{{define "classify"}}Split the document below into clauses and label each clause.

Paragraphs are numbered from 0. A clause is a contiguous run of paragraphs.
Clauses must be listed in document order and must not overlap.

Allowed clause types:
{{range .Taxonomy}}- {{.Type}}: {{.Definition}}
{{end}}
Allowed document types: {{join .DocumentTypes ", "}}

For every clause give one or more candidate labels with a confidence between 0 and 1.

Reply with JSON of the form:
{"document_type": "<document type>", "clauses": [{"paragraph_start": 0, "paragraph_end": 1, "labels": [{"clause_type": "<clause type>", "confidence": 0.9}]}]}

Document:
{{range .Paragraphs}}[{{.Index}}] {{.Text}}
{{end}}{{end}}

{{define "assess"}}Assess one clause of a {{.DocumentType}}.

Clause type: {{.Info.Label}} ({{.Info.Type}})
{{if .Info.HighRisk}}Treat the clause as high risk when it contains any of:
{{range .Info.HighRisk}}- {{.}}
{{end}}{{end}}{{if .Info.LowRisk}}Treat the clause as low risk when it only contains:
{{range .Info.LowRisk}}- {{.}}
{{end}}{{end}}
Clause text:
"""
{{.Text}}
"""

Reply with JSON of the form:
{"plain_language": "<the clause rewritten for a non-lawyer>", "risk_level": "low|medium|high", "risk_reason": "<why>", "recommendations": ["<at most three concrete actions>"], "citations": ["<laws or principles relied on, may be empty>"]}
{{end}}

{{define "summarize"}}Summarize this {{.DocumentType}} for the person who is about to sign it.
The overall risk has been rated {{.OverallRisk}}.

Clauses:
{{range .Clauses}}- {{.ClauseID}} {{.ClauseType}} (risk: {{.RiskLevel}}): {{.PlainLanguage}}
{{end}}
Reply with JSON of the form:
{"summary": "<two or three sentences>", "key_findings": ["<at most five findings, most important first>"]}
{{end}}

{{define "answer"}}Answer the question about the user's {{.DocumentType}} using only the context passages below.
Cite every passage you rely on by its label. If the passages do not contain the answer, say so.
{{if .History}}
Earlier questions in this conversation:
{{range .History}}Q: {{.Question}}
A: {{.Answer}}
{{end}}{{end}}
Context:
{{range .Sources}}[{{.Label}}] {{.Citation}}
{{.Text}}

{{end}}Question: {{.Question}}

Reply with JSON of the form:
{"answer": "<answer>", "confidence": 0.0, "citations": ["D1"]}
{{end}}
`))

type classifyPromptData struct {
	Taxonomy      []model.ClauseTypeInfo
	DocumentTypes []string
	Paragraphs    []model.Paragraph
}

type assessPromptData struct {
	DocumentType string
	Info         model.ClauseTypeInfo
	Text         string
}

type summarizePromptData struct {
	DocumentType string
	OverallRisk  model.RiskLevel
	Clauses      []model.Clause
}

type answerPromptData struct {
	DocumentType string
	History      []model.QAExchange
	Sources      []Source
	Question     string
}

func renderPrompt(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s prompt failed: %w", name, err)
	}
	return buf.String(), nil
}

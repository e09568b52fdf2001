package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jaijaijai353/nika-analytics/internal/table"
)

const systemPrompt = "You are a helpful data analyst that only returns JSON when asked."

// maxPreviewRows bounds how many sample rows are embedded in the prompt.
const maxPreviewRows = 10

// Suggestion is one visualization hint returned by the model.
type Suggestion struct {
	Type     string  `json:"type"`
	X        *string `json:"x"`
	Y        *string `json:"y"`
	Category *string `json:"category"`
}

// QueryAnswer is the structured answer to a natural-language question.
type QueryAnswer struct {
	Answer      string       `json:"answer"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Answer asks the completer a question about the dataset and parses its
// strict-JSON reply. Any failure degrades to a fallback answer with the
// error text; the caller never sees an error.
func Answer(ctx context.Context, completer Completer, records []table.Record, question string) QueryAnswer {
	if completer == nil {
		return fallbackAnswer(errors.New("no completion backend configured"))
	}
	prompt := buildPrompt(records, question)

	content, err := completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return fallbackAnswer(err)
	}

	var answer QueryAnswer
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &answer); err != nil {
		return fallbackAnswer(err)
	}
	if answer.Suggestions == nil {
		answer.Suggestions = []Suggestion{}
	}
	return answer
}

func fallbackAnswer(err error) QueryAnswer {
	return QueryAnswer{
		Answer:      fmt.Sprintf("Could not process with GPT: %v", err),
		Suggestions: []Suggestion{},
	}
}

// buildPrompt embeds the dataset schema, a bounded row preview, and the
// question, and pins the exact JSON reply structure.
func buildPrompt(records []table.Record, question string) string {
	var schema []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, f := range rec.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				schema = append(schema, f.Name)
			}
		}
	}

	preview := records
	if len(preview) > maxPreviewRows {
		preview = preview[:maxPreviewRows]
	}
	previewJSON, err := json.Marshal(preview)
	if err != nil {
		previewJSON = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI data analyst.\n")
	fmt.Fprintf(&b, "Dataset schema: %v\n", schema)
	fmt.Fprintf(&b, "Sample rows (first %d): %s\n", maxPreviewRows, previewJSON)
	fmt.Fprintf(&b, "User question: %s\n\n", question)
	b.WriteString(`Task:
1) Provide a concise, business-friendly answer.
2) Suggest up to 3 useful visualizations based on the data and question.
3) Each suggestion must include fields: type (bar/line/pie/scatter/table/none), x, y, category (nullable).

Respond with JSON ONLY in this exact structure:
{
  "answer": "...",
  "suggestions": [
    {
      "type": "bar/line/pie/scatter/table/none",
      "x": "column_name or null",
      "y": "column_name or null",
      "category": "column_name or null"
    }
  ]
}`)
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models add despite the JSON-only instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

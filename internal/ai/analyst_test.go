package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaijaijai353/nika-analytics/internal/table"
)

type stubCompleter struct {
	reply string
	err   error

	gotSystem string
	gotUser   string
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.gotSystem = system
	s.gotUser = user
	return s.reply, s.err
}

func sampleRecords(t *testing.T) []table.Record {
	t.Helper()
	var records []table.Record
	require.NoError(t, json.Unmarshal(
		[]byte(`[{"region":"west","sales":10},{"region":"east","sales":20}]`), &records))
	return records
}

func TestAnswerParsesStrictJSON(t *testing.T) {
	stub := &stubCompleter{
		reply: `{"answer":"West leads.","suggestions":[{"type":"bar","x":"region","y":"sales","category":null}]}`,
	}

	got := Answer(context.Background(), stub, sampleRecords(t), "Which region leads?")

	assert.Equal(t, "West leads.", got.Answer)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "bar", got.Suggestions[0].Type)
	require.NotNil(t, got.Suggestions[0].X)
	assert.Equal(t, "region", *got.Suggestions[0].X)
	assert.Nil(t, got.Suggestions[0].Category)
}

func TestAnswerStripsCodeFence(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{\"answer\":\"ok\",\"suggestions\":[]}\n```"}

	got := Answer(context.Background(), stub, sampleRecords(t), "q")
	assert.Equal(t, "ok", got.Answer)
	assert.Empty(t, got.Suggestions)
}

func TestAnswerMissingSuggestionsBecomesEmptySlice(t *testing.T) {
	stub := &stubCompleter{reply: `{"answer":"bare"}`}

	got := Answer(context.Background(), stub, sampleRecords(t), "q")
	assert.Equal(t, "bare", got.Answer)
	require.NotNil(t, got.Suggestions)
	assert.Empty(t, got.Suggestions)
}

func TestAnswerCompleterErrorFallsBack(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream down")}

	got := Answer(context.Background(), stub, sampleRecords(t), "q")
	assert.Equal(t, "Could not process with GPT: upstream down", got.Answer)
	assert.Empty(t, got.Suggestions)
	assert.NotNil(t, got.Suggestions)
}

func TestAnswerMalformedReplyFallsBack(t *testing.T) {
	stub := &stubCompleter{reply: "Sure! Here is the answer you wanted."}

	got := Answer(context.Background(), stub, sampleRecords(t), "q")
	assert.Contains(t, got.Answer, "Could not process with GPT:")
	assert.Empty(t, got.Suggestions)
}

func TestAnswerNilCompleterFallsBack(t *testing.T) {
	got := Answer(context.Background(), nil, sampleRecords(t), "q")
	assert.Contains(t, got.Answer, "Could not process with GPT:")
}

func TestAnswerPromptEmbedsSchemaQuestionAndRows(t *testing.T) {
	stub := &stubCompleter{reply: `{"answer":"ok","suggestions":[]}`}

	Answer(context.Background(), stub, sampleRecords(t), "Which region leads?")

	assert.Equal(t, systemPrompt, stub.gotSystem)
	assert.Contains(t, stub.gotUser, "region")
	assert.Contains(t, stub.gotUser, "sales")
	assert.Contains(t, stub.gotUser, "Which region leads?")
	assert.Contains(t, stub.gotUser, `"west"`)
	assert.Contains(t, stub.gotUser, "Respond with JSON ONLY")
}

func TestBuildPromptBoundsPreviewRows(t *testing.T) {
	var records []table.Record
	raw := "["
	for i := 0; i < 25; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `{"n":` + string(rune('0'+i%10)) + `}`
	}
	raw += "]"
	require.NoError(t, json.Unmarshal([]byte(raw), &records))

	prompt := buildPrompt(records, "q")
	assert.Contains(t, prompt, "Sample rows (first 10)")
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                     `{"a":1}`,
		"```json\n{\"a\":1}\n```":       `{"a":1}`,
		"```\n{\"a\":1}\n```":           `{"a":1}`,
		"  ```json\n{\"a\":1}\n```  \n": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripCodeFence(in), "input %q", in)
	}
}

package pipeline

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/resilience"
	"github.com/visapath/i20-processor/pkg/anthropic"
)

const testModelID = "claude-haiku-4-5-20251001"

const sampleFieldsJSON = `{
  "full_name": {"value": "John Doe", "confidence": 0.95},
  "sevis_id": {"value": "N0012345678", "confidence": 0.98},
  "program_end_date": {"value": "2025-12-15", "confidence": 0.92},
  "school_name": {"value": "Northeastern University", "confidence": 0.99}
}`

func newTestStructurer(client anthropic.Client) *Structurer {
	return NewStructurer(client, testModelID, nil, resilience.ZeroDelayPolicy(3))
}

func TestStructure_ParsesFields(t *testing.T) {
	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(sampleFieldsJSON), nil)

	fields, fail := newTestStructurer(mc).Structure(context.Background(), "I-20 raw text")
	require.Nil(t, fail)
	require.NotNil(t, fields)

	assert.Equal(t, "John Doe", fields.FullName.Value)
	assert.InDelta(t, 0.98, fields.SevisID.Confidence, 0.001)
	assert.Nil(t, fields.DateOfBirth)
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestStructure_StripsCodeFences(t *testing.T) {
	for _, fenced := range []string{
		"```json\n" + sampleFieldsJSON + "\n```",
		"```\n" + sampleFieldsJSON + "\n```",
	} {
		mc := new(mockAIClient)
		mc.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(fenced), nil)

		fields, fail := newTestStructurer(mc).Structure(context.Background(), "I-20 raw text")
		require.Nil(t, fail)
		assert.Equal(t, "N0012345678", fields.SevisID.Value)
	}
}

func TestStructure_TruncatesLongText(t *testing.T) {
	longText := strings.Repeat("x", maxTextLengthForAI+5000)

	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		prompt := req.Messages[0].Content
		return strings.Contains(prompt, strings.Repeat("x", maxTextLengthForAI)) &&
			!strings.Contains(prompt, strings.Repeat("x", maxTextLengthForAI+1))
	})).Return(textResponse(sampleFieldsJSON), nil)

	_, fail := newTestStructurer(mc).Structure(context.Background(), longText)
	require.Nil(t, fail)
	mc.AssertExpectations(t)
}

func TestStructure_TruncationKeepsRuneBoundary(t *testing.T) {
	// Three-byte runes put the cutoff mid-rune; the partial rune is dropped
	// rather than sent as invalid UTF-8.
	longText := strings.Repeat("文", maxTextLengthForAI/3+100)

	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return utf8.ValidString(req.Messages[0].Content)
	})).Return(textResponse(sampleFieldsJSON), nil)

	_, fail := newTestStructurer(mc).Structure(context.Background(), longText)
	require.Nil(t, fail)
	mc.AssertExpectations(t)
}

func TestTruncateToRuneBoundary(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"文文文", 9, "文文文"},
		{"文文文", 8, "文文"},
		{"文文文", 7, "文文"},
		{"文文文", 6, "文文"},
		{"文", 2, ""},
	}
	for _, tt := range tests {
		got := truncateToRuneBoundary(tt.in, tt.max)
		assert.Equal(t, tt.want, got, "max %d", tt.max)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestStructure_TransientErrorRetried(t *testing.T) {
	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(eris.New("overloaded"), 529)).Once()
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(sampleFieldsJSON), nil).Once()

	fields, fail := newTestStructurer(mc).Structure(context.Background(), "I-20 raw text")
	require.Nil(t, fail)
	assert.Equal(t, "John Doe", fields.FullName.Value)
	mc.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestStructure_RetriesExhausted(t *testing.T) {
	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(eris.New("rate exceeded"), 429))

	_, fail := newTestStructurer(mc).Structure(context.Background(), "I-20 raw text")
	require.NotNil(t, fail)
	assert.Equal(t, model.ReasonServiceError, fail.Reason)
	assert.Equal(t, "AI processing failed. Please try again or contact support.", fail.Msg)
	mc.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestStructure_PermanentErrorNotRetried(t *testing.T) {
	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("invalid api key"))

	_, fail := newTestStructurer(mc).Structure(context.Background(), "I-20 raw text")
	require.NotNil(t, fail)
	assert.Equal(t, model.ReasonServiceError, fail.Reason)
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestStructure_UnparseableResponseNotRetried(t *testing.T) {
	mc := new(mockAIClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("I could not find any fields in this document."), nil)

	_, fail := newTestStructurer(mc).Structure(context.Background(), "I-20 raw text")
	require.NotNil(t, fail)
	assert.Equal(t, model.ReasonBadResponse, fail.Reason)
	assert.Equal(t, "AI response could not be parsed. Please try again.", fail.Msg)
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"{}", "{}"},
		{"  {}  ", "{}"},
		{"```json\n{}", "{}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFences(tt.in))
	}
}

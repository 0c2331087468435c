package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuestionInput is one entry of the analyze-problem "questions" array.
// The service sends either a bare string or an object; exactly one of
// PlainText / Structured is set after decoding.
type QuestionInput struct {
	PlainText  *string
	Structured *StructuredQuestion
}

// StructuredQuestion is the object form of a question
type StructuredQuestion struct {
	Question string `json:"question"`
	Text     string `json:"text"`
	Answer   string `json:"answer"`
}

// PlainQuestion builds a plain-text QuestionInput
func PlainQuestion(s string) QuestionInput {
	return QuestionInput{PlainText: &s}
}

// UnmarshalJSON accepts a string, an object, or any other scalar (stringified)
func (q *QuestionInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("question entry is null")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		q.PlainText = &s
		q.Structured = nil
	case '{':
		var sq StructuredQuestion
		if err := json.Unmarshal(data, &sq); err != nil {
			return err
		}
		q.Structured = &sq
		q.PlainText = nil
	default:
		// numbers, booleans: keep the literal text as the question
		s := string(data)
		q.PlainText = &s
		q.Structured = nil
	}
	return nil
}

// MarshalJSON writes the entry back in the shape it arrived in
func (q QuestionInput) MarshalJSON() ([]byte, error) {
	if q.Structured != nil {
		return json.Marshal(q.Structured)
	}
	if q.PlainText != nil {
		return json.Marshal(*q.PlainText)
	}
	return []byte("null"), nil
}

// Normalize converts any question shape into a QAItem
func (q QuestionInput) Normalize() QAItem {
	switch {
	case q.Structured != nil:
		question := q.Structured.Question
		if question == "" {
			question = q.Structured.Text
		}
		return QAItem{Question: question, Answer: q.Structured.Answer}
	case q.PlainText != nil:
		return QAItem{Question: *q.PlainText}
	default:
		return QAItem{}
	}
}

// NormalizeQuestions converts a decoded questions array into QAItems, preserving order
func NormalizeQuestions(in []QuestionInput) []QAItem {
	out := make([]QAItem, 0, len(in))
	for _, q := range in {
		out = append(out, q.Normalize())
	}
	return out
}

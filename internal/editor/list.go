package editor

import (
	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/pkg/models"
)

// Field names accepted by Update
const (
	FieldQuestion    = "question"
	FieldAnswer      = "answer"
	FieldName        = "name"
	FieldDescription = "description"
)

// FieldSetter writes value into the named field of item
type FieldSetter[T any] func(item *T, field, value string) error

// List is an order-preserving editable collection.
// Every mutation returns the full updated sequence.
type List[T any] struct {
	items []T
	set   FieldSetter[T]
}

// NewList creates a list seeded with a copy of items
func NewList[T any](items []T, set FieldSetter[T]) *List[T] {
	return &List[T]{
		items: append([]T(nil), items...),
		set:   set,
	}
}

// NewQuestions creates the clarification editor list
func NewQuestions(items []models.QAItem) *List[models.QAItem] {
	return NewList(items, setQAField)
}

// NewNamedItems creates an entity or intent editor list
func NewNamedItems(items []models.NamedItem) *List[models.NamedItem] {
	return NewList(items, setNamedField)
}

// Add appends one empty item at the end
func (l *List[T]) Add() []T {
	var zero T
	l.items = append(l.items, zero)
	return l.Items()
}

// Update replaces one field of the item at index
func (l *List[T]) Update(index int, field, value string) ([]T, error) {
	if index < 0 || index >= len(l.items) {
		return l.Items(), apperr.IndexOutOfRange(index, len(l.items))
	}
	// Edit a copy so a rejected field leaves the item untouched
	item := l.items[index]
	if err := l.set(&item, field, value); err != nil {
		return l.Items(), err
	}
	l.items[index] = item
	return l.Items(), nil
}

// Remove deletes the item at index and shifts later items down
func (l *List[T]) Remove(index int) ([]T, error) {
	if index < 0 || index >= len(l.items) {
		return l.Items(), apperr.IndexOutOfRange(index, len(l.items))
	}
	l.items = append(l.items[:index:index], l.items[index+1:]...)
	return l.Items(), nil
}

// Items returns a copy of the current sequence
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items
func (l *List[T]) Len() int {
	return len(l.items)
}

func setQAField(item *models.QAItem, field, value string) error {
	switch field {
	case FieldQuestion:
		item.Question = value
	case FieldAnswer:
		item.Answer = value
	default:
		return apperr.Validation("unknown question field %q", field)
	}
	return nil
}

func setNamedField(item *models.NamedItem, field, value string) error {
	switch field {
	case FieldName:
		item.Name = value
	case FieldDescription:
		item.Description = value
	default:
		return apperr.Validation("unknown field %q", field)
	}
	return nil
}

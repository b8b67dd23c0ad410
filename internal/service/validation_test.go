package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInput() TicketInput {
	return TicketInput{Title: "Printer on fire", Description: "Smoke everywhere", Priority: "high"}
}

func TestValidateTicketInputTitleLength(t *testing.T) {
	cases := []struct {
		length int
		want   []string
	}{
		{0, []string{"Title is required"}},
		{2, []string{"Title must be between 3 and 120 characters"}},
		{3, nil},
		{120, nil},
		{121, []string{"Title must be between 3 and 120 characters"}},
	}
	for _, tc := range cases {
		input := validInput()
		input.Title = strings.Repeat("t", tc.length)
		assert.Equal(t, tc.want, ValidateTicketInput(input), "title length %d", tc.length)
	}
}

func TestValidateTicketInputDescriptionLength(t *testing.T) {
	cases := []struct {
		length int
		want   []string
	}{
		{0, []string{"Description is required"}},
		{1, nil},
		{1000, nil},
		{1001, []string{"Description must be between 1 and 1000 characters"}},
	}
	for _, tc := range cases {
		input := validInput()
		input.Description = strings.Repeat("d", tc.length)
		assert.Equal(t, tc.want, ValidateTicketInput(input), "description length %d", tc.length)
	}
}

func TestValidateTicketInputRejectsUnknownPriority(t *testing.T) {
	for _, priority := range []string{"", "urgent", "HIGH", " low"} {
		input := validInput()
		input.Priority = priority
		assert.Equal(t, []string{"Priority must be one of: low, medium, high"}, ValidateTicketInput(input), "priority %q", priority)
	}
}

func TestValidateTicketInputCollectsAllErrors(t *testing.T) {
	got := ValidateTicketInput(TicketInput{Title: "  ", Description: "", Priority: "nope"})
	assert.Equal(t, []string{
		"Title is required",
		"Description is required",
		"Priority must be one of: low, medium, high",
	}, got)
}

func TestValidateTicketInputTrimsAndCountsRunes(t *testing.T) {
	input := validInput()
	input.Title = "  ab  "
	assert.Equal(t, []string{"Title must be between 3 and 120 characters"}, ValidateTicketInput(input))

	input.Title = strings.Repeat("é", 120)
	assert.Empty(t, ValidateTicketInput(input))
}

func TestValidateStatus(t *testing.T) {
	for _, raw := range []string{"open", "in_progress", "closed"} {
		status, ok := ValidateStatus(raw)
		assert.True(t, ok)
		assert.Equal(t, raw, string(status))
	}
	for _, raw := range []string{"", "resolved", "OPEN", "null"} {
		_, ok := ValidateStatus(raw)
		assert.False(t, ok, raw)
	}
}

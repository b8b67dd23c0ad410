package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

const (
	TitleMinLength       = 3
	TitleMaxLength       = 120
	DescriptionMinLength = 1
	DescriptionMaxLength = 1000
)

// TicketInput is the caller supplied part of a new ticket.
type TicketInput struct {
	Title       string `validate:"required,min=3,max=120"`
	Description string `validate:"required,min=1,max=1000"`
	Priority    string `validate:"ticket_priority"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
	return v
}

// ValidateTicketInput returns every failed rule as a client message; empty means valid.
// Title and description are checked after trimming; lengths count code points.
func ValidateTicketInput(input TicketInput) []string {
	trimmed := TicketInput{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
	}
	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{"Invalid ticket data"}
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, ticketFieldMessage(fe))
	}
	return messages
}

// ValidateStatus checks a raw status value against the status enumeration.
func ValidateStatus(raw string) (domain.TicketStatus, bool) {
	if err := validate.Var(raw, "ticket_status"); err != nil {
		return "", false
	}
	return domain.TicketStatus(raw), true
}

func ticketFieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Title":
		if fe.Tag() == "required" {
			return "Title is required"
		}
		return fmt.Sprintf("Title must be between %d and %d characters", TitleMinLength, TitleMaxLength)
	case "Description":
		if fe.Tag() == "required" {
			return "Description is required"
		}
		return fmt.Sprintf("Description must be between %d and %d characters", DescriptionMinLength, DescriptionMaxLength)
	case "Priority":
		return "Priority must be one of: " + joinPriorities()
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func joinPriorities() string {
	values := domain.TicketPriorities()
	parts := make([]string, len(values))
	for i, p := range values {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}

func joinStatuses() string {
	values := domain.TicketStatuses()
	parts := make([]string, len(values))
	for i, s := range values {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

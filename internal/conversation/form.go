package conversation

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
)

// Tag identifies which input a user's active form is waiting for.
type Tag string

const (
	TagNone          Tag = "none"
	TagTicketName    Tag = "collecting-ticket-name"
	TagTicketRoom    Tag = "collecting-ticket-room"
	TagTicketProblem Tag = "collecting-ticket-problem"
	TagCloseTicketID Tag = "collecting-close-ticket-id"
	TagCloserName    Tag = "collecting-closer-name"
	TagCloseResponse Tag = "collecting-close-response"
	TagBlockReason   Tag = "collecting-block-reason"
	TagFeedback      Tag = "collecting-feedback"
)

// Form names.
const (
	FormIntake      = "intake"
	FormCloseLookup = "close_lookup"
	FormClose       = "close"
	FormBlock       = "block"
	FormFeedback    = "feedback"
)

// Field names, used as keys of State.Answers.
const (
	FieldFullName = "full_name"
	FieldRoom     = "room"
	FieldProblem  = "problem"
	FieldTicketID = "ticket_id"
	FieldCloser   = "closer_name"
	FieldResponse = "response"
	FieldReason   = "reason"
	FieldFeedback = "feedback"
)

// MinProblemLength is the minimum problem description length, in runes,
// when strict validation is on.
const MinProblemLength = 10

// Column widths of the tickets table. Answers stored there are capped so
// a valid answer can always be saved.
const (
	MaxFullNameLength = 255
	MaxRoomLength     = 64
	MaxCloserLength   = 255
)

// ValidationError reasons the chat layer turns into user-facing text.
const (
	ReasonEmpty    = "must not be empty"
	ReasonTooLong  = "is too long"
	ReasonFullName = "must contain a first and last name"
)

// Validator normalizes a raw input or rejects it with a *errs.ValidationError.
type Validator func(field, value string) (string, error)

type Field struct {
	Name     string
	Tag      Tag
	Validate Validator
}

// Form is a fixed ordered sequence of required fields.
type Form struct {
	Name   string
	Fields []Field
}

// NonEmpty trims the value and rejects blank input.
func NonEmpty(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", &errs.ValidationError{Field: field, Reason: ReasonEmpty}
	}
	return v, nil
}

// MinRunes returns a validator requiring at least n characters after trimming.
func MinRunes(n int) Validator {
	return func(field, value string) (string, error) {
		v, err := NonEmpty(field, value)
		if err != nil {
			return "", err
		}
		if utf8.RuneCountInString(v) < n {
			return "", &errs.ValidationError{Field: field, Reason: "must be at least " + strconv.Itoa(n) + " characters"}
		}
		return v, nil
	}
}

// MaxRunes wraps v and rejects values longer than n characters.
func MaxRunes(n int, v Validator) Validator {
	return func(field, value string) (string, error) {
		out, err := v(field, value)
		if err != nil {
			return "", err
		}
		if utf8.RuneCountInString(out) > n {
			return "", &errs.ValidationError{Field: field, Reason: ReasonTooLong}
		}
		return out, nil
	}
}

// FullName requires at least three characters with a space between words.
func FullName(field, value string) (string, error) {
	v, err := NonEmpty(field, value)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(v) < 3 || !strings.Contains(v, " ") {
		return "", &errs.ValidationError{Field: field, Reason: ReasonFullName}
	}
	return v, nil
}

// TicketID accepts a positive integer, optionally prefixed with '#'.
func TicketID(field, value string) (string, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return "", &errs.ValidationError{Field: field, Reason: "must be a ticket number"}
	}
	return strconv.FormatUint(id, 10), nil
}

// Forms returns the forms the helpdesk uses. With strict set, the full name
// must look like "First Last" and the problem description must be at least
// MinProblemLength characters; otherwise any non-empty text is accepted.
func Forms(strict bool) []Form {
	name, problem := Validator(NonEmpty), Validator(NonEmpty)
	if strict {
		name, problem = FullName, MinRunes(MinProblemLength)
	}
	return []Form{
		{Name: FormIntake, Fields: []Field{
			{Name: FieldFullName, Tag: TagTicketName, Validate: MaxRunes(MaxFullNameLength, name)},
			{Name: FieldRoom, Tag: TagTicketRoom, Validate: MaxRunes(MaxRoomLength, NonEmpty)},
			{Name: FieldProblem, Tag: TagTicketProblem, Validate: problem},
		}},
		{Name: FormCloseLookup, Fields: []Field{
			{Name: FieldTicketID, Tag: TagCloseTicketID, Validate: TicketID},
		}},
		{Name: FormClose, Fields: []Field{
			{Name: FieldCloser, Tag: TagCloserName, Validate: MaxRunes(MaxCloserLength, NonEmpty)},
			{Name: FieldResponse, Tag: TagCloseResponse, Validate: NonEmpty},
		}},
		{Name: FormBlock, Fields: []Field{
			{Name: FieldReason, Tag: TagBlockReason, Validate: NonEmpty},
		}},
		{Name: FormFeedback, Fields: []Field{
			{Name: FieldFeedback, Tag: TagFeedback, Validate: NonEmpty},
		}},
	}
}

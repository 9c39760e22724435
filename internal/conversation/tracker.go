// Package conversation tracks which multi-step form each user is filling in
// and the answers collected so far.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
)

var (
	ErrNoActiveForm = errors.New("no active form")
	ErrUnknownForm  = errors.New("unknown form")
)

// Step is the outcome of SetField. Field is the field that was filled;
// Next is the field now pending and is zero when Done.
type Step struct {
	Field Field
	Next  Field
	Done  bool
}

// Tracker owns per-user form state. One form may be active per user;
// Begin replaces whatever was active before.
type Tracker struct {
	store Store
	forms map[string]Form
}

func NewTracker(store Store, forms []Form) *Tracker {
	m := make(map[string]Form, len(forms))
	for _, f := range forms {
		m[f.Name] = f
	}
	return &Tracker{store: store, forms: m}
}

// Begin starts form for user and returns its first field.
func (t *Tracker) Begin(ctx context.Context, userID int64, form string, corr Correlation) (Field, error) {
	f, ok := t.forms[form]
	if !ok || len(f.Fields) == 0 {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownForm, form)
	}
	st := &State{Form: form, Answers: map[string]string{}, Correlation: corr}
	if err := t.store.Put(ctx, userID, st); err != nil {
		return Field{}, errs.Persistence("begin form", err)
	}
	return f.Fields[0], nil
}

// SetField applies value to the pending field. A rejected value leaves the
// form on the same field and returns a *errs.ValidationError. Filling the
// last field reports Done but keeps the state until Complete, so a caller
// whose commit fails can let the user retry the same step.
func (t *Tracker) SetField(ctx context.Context, userID int64, value string) (Step, error) {
	st, f, err := t.load(ctx, userID)
	if err != nil {
		return Step{}, err
	}
	if st == nil {
		return Step{}, ErrNoActiveForm
	}
	field := f.Fields[st.Step]
	v := value
	if field.Validate != nil {
		if v, err = field.Validate(field.Name, value); err != nil {
			return Step{Field: field, Next: field}, err
		}
	}
	st.Answers[field.Name] = v
	step := Step{Field: field}
	if st.Step+1 < len(f.Fields) {
		st.Step++
		step.Next = f.Fields[st.Step]
	} else {
		step.Done = true
	}
	if err := t.store.Put(ctx, userID, st); err != nil {
		return Step{}, errs.Persistence("save form", err)
	}
	return step, nil
}

// Current returns the user's state, or nil when no form is active.
func (t *Tracker) Current(ctx context.Context, userID int64) (*State, error) {
	st, _, err := t.load(ctx, userID)
	return st, err
}

// CurrentTag returns the tag of the pending field, TagNone when idle.
func (t *Tracker) CurrentTag(ctx context.Context, userID int64) (Tag, error) {
	st, f, err := t.load(ctx, userID)
	if err != nil || st == nil {
		return TagNone, err
	}
	return f.Fields[st.Step].Tag, nil
}

// Cancel discards the active form and reports whether there was one.
func (t *Tracker) Cancel(ctx context.Context, userID int64) (bool, error) {
	st, _, err := t.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, nil
	}
	if err := t.store.Delete(ctx, userID); err != nil {
		return false, errs.Persistence("cancel form", err)
	}
	return true, nil
}

// Complete clears the active form and returns what was collected.
func (t *Tracker) Complete(ctx context.Context, userID int64) (*State, error) {
	st, _, err := t.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrNoActiveForm
	}
	if err := t.store.Delete(ctx, userID); err != nil {
		return nil, errs.Persistence("complete form", err)
	}
	return st, nil
}

// Restore puts back a state taken by Complete when its commit failed.
func (t *Tracker) Restore(ctx context.Context, userID int64, st *State) error {
	if err := t.store.Put(ctx, userID, st); err != nil {
		return errs.Persistence("restore form", err)
	}
	return nil
}

// load returns the stored state with its form definition. A state that
// refers to an unknown form or an out of range step is dropped.
func (t *Tracker) load(ctx context.Context, userID int64) (*State, Form, error) {
	st, err := t.store.Get(ctx, userID)
	if err != nil {
		return nil, Form{}, errs.Persistence("load form", err)
	}
	if st == nil {
		return nil, Form{}, nil
	}
	f, ok := t.forms[st.Form]
	if !ok || st.Step < 0 || st.Step >= len(f.Fields) {
		_ = t.store.Delete(ctx, userID)
		return nil, Form{}, nil
	}
	if st.Answers == nil {
		st.Answers = map[string]string{}
	}
	return st, f, nil
}

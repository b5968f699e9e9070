// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline. Use errors.Is to classify a failure;
// use errors.As with the structured types below for attempt counts.
var (
	// ErrValidation means the caller's input was empty or malformed. No
	// network call was made.
	ErrValidation = errors.New("invalid input")

	// ErrParsing means the planner could not obtain structured search
	// inputs from the language model.
	ErrParsing = errors.New("parsing failed")

	// ErrNoResults means every search batch came back empty.
	ErrNoResults = errors.New("no results")

	// ErrProviderTransient means a language-model or search-provider call
	// kept failing until the stage ran out of attempts.
	ErrProviderTransient = errors.New("provider call failed")
)

// ParsingError is returned by the planner after its last attempt.
type ParsingError struct {
	Attempts int
	Err      error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("generating search inputs failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

// Is matches ErrParsing.
func (e *ParsingError) Is(target error) bool { return target == ErrParsing }

// NoResultsError is returned by the search executor when every batch
// attempt produced zero quotes.
type NoResultsError struct {
	Attempts int
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("no quotes found after %d attempts", e.Attempts)
}

// Is matches ErrNoResults.
func (e *NoResultsError) Is(target error) bool { return target == ErrNoResults }

// ProviderTransientError wraps the last provider failure of a stage that
// exhausted its attempt budget.
type ProviderTransientError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *ProviderTransientError) Error() string {
	return fmt.Sprintf("%s: provider failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

func (e *ProviderTransientError) Unwrap() error { return e.Err }

// Is matches ErrProviderTransient.
func (e *ProviderTransientError) Is(target error) bool { return target == ErrProviderTransient }

// Invalid wraps a validation failure with ErrValidation.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

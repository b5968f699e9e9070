// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package route

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var asOf = time.Date(2024, 10, 19, 0, 0, 0, 0, time.UTC)

// fakeResearcher echoes the question it was asked.
type fakeResearcher struct {
	questions []string
	err       error
}

func (f *fakeResearcher) Run(_ context.Context, question string, _ time.Time) (types.Report, error) {
	f.questions = append(f.questions, question)
	if f.err != nil {
		return types.Report{}, f.err
	}
	return types.Report{Question: question, Text: "answer to: " + question}, nil
}

func fixedReply(reply string) (llm.Invoker, *[]float64) {
	var temps []float64
	return llm.InvokerFunc(func(_ context.Context, _ string, temp float64) (string, error) {
		temps = append(temps, temp)
		return reply, nil
	}), &temps
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestSelect(t *testing.T) {
	entries := DefaultEntries(&fakeResearcher{})
	tests := []struct {
		name      string
		response  string
		want      string
		wantMatch bool
	}{
		{"base rate named", "Step 3: BASE_RATE_RESEARCHER", BaseRateResearcherName, true},
		{"general named", "GENERAL_RESEARCHER fits best", GeneralResearcherName, true},
		{"both named, later registry entry wins", "BASE_RATE_RESEARCHER ... final: GENERAL_RESEARCHER", BaseRateResearcherName, true},
		{"lower case does not match", "base_rate_researcher", GeneralResearcherName, false},
		{"nothing named", "I am not sure.", GeneralResearcherName, false},
		{"empty", "", GeneralResearcherName, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := Select(tt.response, entries)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.wantMatch, matched)
		})
	}
}

func TestSelect_Deterministic(t *testing.T) {
	entries := DefaultEntries(&fakeResearcher{})
	response := "Candidates: GENERAL_RESEARCHER, BASE_RATE_RESEARCHER. Choice: BASE_RATE_RESEARCHER"
	first, _ := Select(response, entries)
	for i := 0; i < 50; i++ {
		got, _ := Select(response, entries)
		require.Equal(t, first.Name, got.Name)
	}
}

func TestSelect_NoEntries(t *testing.T) {
	e, matched := Select("anything", nil)
	assert.Empty(t, e.Name)
	assert.False(t, matched)
}

func TestRoute_PromptAndTemperature(t *testing.T) {
	var prompt string
	l := llm.InvokerFunc(func(_ context.Context, p string, temp float64) (string, error) {
		prompt = p
		assert.Zero(t, temp)
		return "BASE_RATE_RESEARCHER", nil
	})
	r, err := New(l, DefaultEntries(&fakeResearcher{}), types.RouterConfig{})
	require.NoError(t, err)

	entry, err := r.Route(context.Background(), "  How often do Atlantic hurricanes hit Florida?  ")
	require.NoError(t, err)
	assert.Equal(t, BaseRateResearcherName, entry.Name)

	assert.Contains(t, prompt, "choose one of 2 research strategies")
	assert.Contains(t, prompt, "How often do Atlantic hurricanes hit Florida?\n")
	assert.Contains(t, prompt, "GENERAL_RESEARCHER: Searches the web")
	assert.Contains(t, prompt, "BASE_RATE_RESEARCHER: Finds how often")
	assert.Contains(t, prompt, "in all caps")
}

func TestRoute_EmptyQuestion(t *testing.T) {
	l, temps := fixedReply("GENERAL_RESEARCHER")
	r, err := New(l, DefaultEntries(&fakeResearcher{}), types.RouterConfig{})
	require.NoError(t, err)

	_, err = r.Route(context.Background(), "   ")
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Empty(t, *temps)
}

func TestRoute_RetriesThenFails(t *testing.T) {
	calls := 0
	l := llm.InvokerFunc(func(context.Context, string, float64) (string, error) {
		calls++
		return "", errors.New("timeout")
	})
	r, err := New(l, DefaultEntries(&fakeResearcher{}), types.RouterConfig{MaxAttempts: 2}, WithSleeper(noSleep))
	require.NoError(t, err)

	_, err = r.Route(context.Background(), "q")
	var pt *types.ProviderTransientError
	require.ErrorAs(t, err, &pt)
	assert.Equal(t, "route", pt.Stage)
	assert.Equal(t, 2, calls)
}

func TestAnswer_DefaultHasNoPrefix(t *testing.T) {
	res := &fakeResearcher{}
	l, _ := fixedReply("no idea")
	r, err := New(l, DefaultEntries(res), types.RouterConfig{})
	require.NoError(t, err)

	text, entry, err := r.Answer(context.Background(), "Will it rain?", asOf)
	require.NoError(t, err)
	assert.Equal(t, GeneralResearcherName, entry.Name)
	assert.Equal(t, "answer to: Will it rain?", text)
	assert.Equal(t, []string{"Will it rain?"}, res.questions)
}

func TestAnswer_NonDefaultIsPrefixed(t *testing.T) {
	res := &fakeResearcher{}
	l, _ := fixedReply("3. BASE_RATE_RESEARCHER")
	r, err := New(l, DefaultEntries(res), types.RouterConfig{})
	require.NoError(t, err)

	text, entry, err := r.Answer(context.Background(), "How often do recessions follow inverted yield curves?", asOf)
	require.NoError(t, err)
	assert.Equal(t, BaseRateResearcherName, entry.Name)
	assert.True(t, strings.HasPrefix(text, "Using strategy BASE_RATE_RESEARCHER:\n"))
	require.Len(t, res.questions, 1)
	assert.Contains(t, res.questions[0], "historical base rate")
	assert.Contains(t, res.questions[0], "How often do recessions follow inverted yield curves?")
}

func TestAnswer_ResponderError(t *testing.T) {
	res := &fakeResearcher{err: &types.NoResultsError{Attempts: 7}}
	l, _ := fixedReply("GENERAL_RESEARCHER")
	r, err := New(l, DefaultEntries(res), types.RouterConfig{})
	require.NoError(t, err)

	_, _, err = r.Answer(context.Background(), "q", asOf)
	assert.ErrorIs(t, err, types.ErrNoResults)
	assert.Contains(t, err.Error(), "strategy GENERAL_RESEARCHER")
}

func TestNew_RejectsBadRegistry(t *testing.T) {
	l, _ := fixedReply("")
	ok := DefaultEntries(&fakeResearcher{})

	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty", nil},
		{"missing name", []Entry{{Description: "d", New: ok[0].New}}},
		{"missing constructor", []Entry{{Name: "X", Description: "d"}}},
		{"duplicate", []Entry{ok[0], ok[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(l, tt.entries, types.RouterConfig{})
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

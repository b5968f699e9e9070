// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- scripted invoker ---

type step struct {
	text string
	err  error
}

type scriptedLLM struct {
	steps   []step
	prompts []string
	temps   []float64
}

func (s *scriptedLLM) Invoke(_ context.Context, prompt string, temperature float64) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.temps = append(s.temps, temperature)
	i := len(s.prompts) - 1
	if i >= len(s.steps) {
		return "", fmt.Errorf("unexpected call %d", i+1)
	}
	return s.steps[i].text, s.steps[i].err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

var asOf = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

const validResponse = `<analysis>
Launch cadence matters most.
</analysis>
<search_inputs>
[
    {"web_search_query": "Starship orbital launch 2025", "highlight_query": "Starship launch date", "start_published_date": "2025-01-01"},
    {"web_search_query": "FAA Starship license", "start_published_date": null}
]
</search_inputs>`

func newTestPlanner(l llm.Invoker, rec *sleepRecorder) *Planner {
	return New(l, types.PlannerConfig{SearchCount: 2, Temperature: 0.3, BaseDelay: 2 * time.Second}, WithSleeper(rec.sleep))
}

// --- Plan ---

func TestPlan_Success(t *testing.T) {
	l := &scriptedLLM{steps: []step{{text: validResponse}}}
	rec := &sleepRecorder{}

	inputs, err := newTestPlanner(l, rec).Plan(context.Background(), "Will Starship reach orbit?", asOf)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "Starship orbital launch 2025", inputs[0].Query)
	assert.Equal(t, "Starship launch date", inputs[0].Highlight())
	require.NotNil(t, inputs[0].StartPublished)
	assert.Equal(t, "2025-01-01", inputs[0].StartPublished.Format(types.DateLayout))

	assert.Equal(t, "FAA Starship license", inputs[1].Highlight())
	assert.Nil(t, inputs[1].StartPublished)

	assert.Len(t, l.prompts, 1)
	assert.Equal(t, []float64{0.3}, l.temps)
	assert.Contains(t, l.prompts[0], "TODAY'S DATE IS 2025-03-14")
	assert.Contains(t, l.prompts[0], "Will Starship reach orbit?")
	assert.Contains(t, l.prompts[0], "Generate 2 web searches")
	assert.Empty(t, rec.delays)
}

func TestPlan_EndDateForcedToAsOf(t *testing.T) {
	resp := `<search_inputs>[{"web_search_query": "q", "end_published_date": "2030-01-01"}]</search_inputs>`
	l := &scriptedLLM{steps: []step{{text: resp}}}

	inputs, err := newTestPlanner(l, &sleepRecorder{}).Plan(context.Background(), "question", asOf)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.NotNil(t, inputs[0].EndPublished)
	assert.True(t, inputs[0].EndPublished.Equal(asOf))
}

func TestPlan_EndDatesAreIndependent(t *testing.T) {
	l := &scriptedLLM{steps: []step{{text: validResponse}}}

	inputs, err := newTestPlanner(l, &sleepRecorder{}).Plan(context.Background(), "question", asOf)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.NotSame(t, inputs[0].EndPublished, inputs[1].EndPublished)
}

func TestPlan_MalformedTwiceThenValid(t *testing.T) {
	l := &scriptedLLM{steps: []step{
		{text: "I could not decide."},
		{text: "<search_inputs>not json at all</search_inputs>"},
		{text: validResponse},
		{text: `<search_inputs>[{"web_search_query": "attempt four"}]</search_inputs>`},
	}}
	rec := &sleepRecorder{}

	inputs, err := newTestPlanner(l, rec).Plan(context.Background(), "question", asOf)
	require.NoError(t, err)
	assert.Len(t, l.prompts, 3, "no fourth call")
	require.Len(t, inputs, 2)
	assert.Equal(t, "Starship orbital launch 2025", inputs[0].Query)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestPlan_ExhaustsAttempts(t *testing.T) {
	l := &scriptedLLM{steps: []step{
		{text: "nothing"},
		{text: "still nothing"},
		{text: "<search_inputs>[]</search_inputs>"},
	}}
	rec := &sleepRecorder{}

	_, err := newTestPlanner(l, rec).Plan(context.Background(), "question", asOf)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrParsing)

	var perr *types.ParsingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Attempts)
	assert.Len(t, l.prompts, 3)
}

func TestPlan_ProviderFailuresExhausted(t *testing.T) {
	boom := errors.New("connection reset")
	l := &scriptedLLM{steps: []step{{err: boom}, {err: boom}, {err: boom}}}

	_, err := newTestPlanner(l, &sleepRecorder{}).Plan(context.Background(), "question", asOf)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrParsing)
	assert.ErrorIs(t, err, types.ErrProviderTransient)
	assert.ErrorIs(t, err, boom)
}

func TestPlan_FatalProviderErrorStopsRetrying(t *testing.T) {
	fatal := fmt.Errorf("%w: invalid api key", llm.ErrFatalAPI)
	l := &scriptedLLM{steps: []step{{err: fatal}, {text: validResponse}}}

	_, err := newTestPlanner(l, &sleepRecorder{}).Plan(context.Background(), "question", asOf)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrFatalAPI)
	assert.Len(t, l.prompts, 1)
}

func TestPlan_EmptyQuestion(t *testing.T) {
	l := &scriptedLLM{}

	_, err := newTestPlanner(l, &sleepRecorder{}).Plan(context.Background(), "   ", asOf)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Empty(t, l.prompts, "no model call for invalid input")
}

func TestPlan_Defaults(t *testing.T) {
	p := New(&scriptedLLM{}, types.PlannerConfig{})
	assert.Equal(t, 2, p.cfg.SearchCount)
	assert.Equal(t, 3, p.policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.policy.Delay(2))
}

// --- ParseSearchInputs ---

func TestParseSearchInputs(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantErr   string
		wantLen   int
		wantFirst string
		dropped   int
	}{
		{
			name:      "valid",
			response:  validResponse,
			wantLen:   2,
			wantFirst: "Starship orbital launch 2025",
		},
		{
			name:     "missing sentinels",
			response: `[{"web_search_query": "q"}]`,
			wantErr:  "no search inputs JSON found",
		},
		{
			name:      "trailing comma repaired",
			response:  "<search_inputs>\n[\n  {\"web_search_query\": \"repaired query\"},\n]\n</search_inputs>",
			wantLen:   1,
			wantFirst: "repaired query",
		},
		{
			name:     "missing query",
			response: `<search_inputs>[{"highlight_query": "h"}]</search_inputs>`,
			wantErr:  "missing web_search_query",
		},
		{
			name:     "empty array",
			response: `<search_inputs>[]</search_inputs>`,
			wantErr:  "empty",
		},
		{
			name:     "array of strings",
			response: `<search_inputs>["a", "b"]</search_inputs>`,
			wantErr:  "not an object",
		},
		{
			name:      "placeholder date dropped",
			response:  `<search_inputs>[{"web_search_query": "q", "start_published_date": "..."}]</search_inputs>`,
			wantLen:   1,
			wantFirst: "q",
			dropped:   1,
		},
		{
			name:      "rfc3339 date",
			response:  `<search_inputs>[{"web_search_query": "q", "start_published_date": "2024-06-01T00:00:00Z"}]</search_inputs>`,
			wantLen:   1,
			wantFirst: "q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs, dropped, err := ParseSearchInputs(tt.response)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, inputs, tt.wantLen)
			assert.Equal(t, tt.wantFirst, inputs[0].Query)
			assert.Len(t, dropped, tt.dropped)
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt("Will it rain?", asOf, 5)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "TODAY'S DATE IS 2025-03-14"))
	assert.Contains(t, prompt, "<question>\nWill it rain?\n</question>")
	assert.Contains(t, prompt, "Generate 5 web searches")
	assert.Contains(t, prompt, "<search_inputs>")
}

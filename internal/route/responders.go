// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package route

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Strategy names of the built-in responders.
const (
	GeneralResearcherName  = "GENERAL_RESEARCHER"
	BaseRateResearcherName = "BASE_RATE_RESEARCHER"
)

// Researcher runs the evidence pipeline for a question. pipeline.Searcher
// satisfies it.
type Researcher interface {
	Run(ctx context.Context, question string, asOf time.Time) (types.Report, error)
}

// DefaultEntries returns the built-in registry: the general researcher
// first (the default), then the base-rate researcher.
func DefaultEntries(r Researcher) []Entry {
	return []Entry{
		{
			Name:        GeneralResearcherName,
			Description: "Searches the web for recent news and evidence about the question and writes a cited report. Use for most questions, and whenever no other strategy clearly fits.",
			New: func(question string) Responder {
				return researchResponder{researcher: r, question: question}
			},
		},
		{
			Name:        BaseRateResearcherName,
			Description: "Finds how often events like the one in the question have happened historically and reports a base rate with its reference class. Use when the question asks how often something happens or how likely a recurring kind of event is.",
			New: func(question string) Responder {
				return researchResponder{researcher: r, question: baseRateQuestion(question)}
			},
		},
	}
}

type researchResponder struct {
	researcher Researcher
	question   string
}

func (rr researchResponder) Respond(ctx context.Context, asOf time.Time) (string, error) {
	rep, err := rr.researcher.Run(ctx, rr.question, asOf)
	if err != nil {
		return "", err
	}
	return rep.Text, nil
}

// baseRateQuestion reframes question as a historical-frequency inquiry.
func baseRateQuestion(question string) string {
	return fmt.Sprintf(`Find the historical base rate relevant to this question: %s

Identify a reference class of comparable past events, count how often the outcome in question occurred within it over a stated time window, and express the result as a frequency (for example "3 times in the last 20 years"). Note how the current situation differs from the reference class.`, question)
}

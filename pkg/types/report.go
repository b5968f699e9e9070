// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OutputMode selects how the pipeline formats its terminal artifact.
type OutputMode string

const (
	// ModeRaw returns the ranked quotes as a numbered evidence list.
	ModeRaw OutputMode = "raw"

	// ModeReport asks the language model to synthesize a cited narrative.
	ModeReport OutputMode = "report"
)

// Report is the terminal artifact of one pipeline invocation. Citation
// markers [i] in Text refer to Quotes[i-1].
type Report struct {
	Question string        `json:"question" yaml:"question"`
	AsOf     time.Time     `json:"as_of" yaml:"as_of"`
	Mode     OutputMode    `json:"mode" yaml:"mode"`
	Strategy string        `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Inputs   []SearchInput `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Quotes   []Quote       `json:"quotes" yaml:"quotes"`
	Text     string        `json:"text" yaml:"text"`
}

// RunRecord is a report as stored by the CLI archive.
type RunRecord struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Report    Report    `json:"report" yaml:"report"`
}

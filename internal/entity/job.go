package entity

import (
	"errors"
	"fmt"
)

// Option is a processing flag consumed by the condense stage.
// Unrecognized flags are ignored, not rejected.
type Option string

const (
	OptionFullText    Option = "FULL_TEXT"    // skip summarization, read the whole text
	OptionShortLength Option = "SHORT_LENGTH" // 2-3 sentence summary
	OptionLongLength  Option = "LONG_LENGTH"  // detailed summary
	OptionEasierWords Option = "EASIER_WORDS" // simple vocabulary
)

func (o Option) Known() bool {
	switch o {
	case OptionFullText, OptionShortLength, OptionLongLength, OptionEasierWords:
		return true
	}
	return false
}

// KnownOptions drops flags the pipeline does not recognize.
func KnownOptions(opts []Option) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if o.Known() {
			out = append(out, o)
		}
	}
	return out
}

// Job is the unit of work carried on the queue. It is created by the
// submitter, never mutated afterward, and discarded once the pipeline
// has run. Exactly one of URL / FilePath is set.
//
// Credential authorizes calls to the generation service for this job
// only. It lives in the message payload and nowhere else: it is never
// written to the status store and never logged.
type Job struct {
	ID         string   `json:"job_id"`
	URL        string   `json:"url,omitempty"`
	FilePath   string   `json:"file_path,omitempty"`
	Options    []Option `json:"options"`
	Credential string   `json:"api_key"`
}

// Validate checks the one-of input rule and the credential. It wraps
// ErrValidation so callers can map the failure to a 400.
func (j Job) Validate() error {
	if j.URL == "" && j.FilePath == "" {
		return fmt.Errorf("%w: a URL or a file is required", ErrValidation)
	}
	if j.URL != "" && j.FilePath != "" {
		return fmt.Errorf("%w: URL and file are mutually exclusive", ErrValidation)
	}
	if j.Credential == "" {
		return fmt.Errorf("%w: API key is required", ErrValidation)
	}
	return nil
}

type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateFinished   State = "finished"
	StateFailed     State = "failed"
)

// rank orders states along the only legal path:
// queued -> processing -> {finished | failed}.
var rank = map[State]int{
	StateQueued:     0,
	StateProcessing: 1,
	StateFinished:   2,
	StateFailed:     2,
}

func (s State) Valid() bool {
	_, ok := rank[s]
	return ok
}

func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed
}

// CanTransition reports whether a record may move from one state to
// another. State is strictly forward-moving; a terminal state never
// changes again.
func CanTransition(from, to State) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	return rank[to] > rank[from]
}

// Record is the status store's unit, keyed by job id. Error is set only
// for failed jobs, ResultReference only for finished ones.
type Record struct {
	State           State  `json:"status"`
	Error           string `json:"error,omitempty"`
	ResultReference string `json:"result_reference,omitempty"`
}

var errRecordShape = errors.New("record fields do not match its state")

// Validate rejects records whose optional fields disagree with the state.
func (r Record) Validate() error {
	if !r.State.Valid() {
		return fmt.Errorf("unknown state %q", r.State)
	}
	if r.Error != "" && r.State != StateFailed {
		return errRecordShape
	}
	if r.ResultReference != "" && r.State != StateFinished {
		return errRecordShape
	}
	return nil
}

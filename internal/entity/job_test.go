package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"url job", Job{ID: "1", URL: "https://example.org", Credential: "k"}, false},
		{"file job", Job{ID: "1", FilePath: "/tmp/a.pdf", Credential: "k"}, false},
		{"no input", Job{ID: "1", Credential: "k"}, true},
		{"both inputs", Job{ID: "1", URL: "https://example.org", FilePath: "/tmp/a.pdf", Credential: "k"}, true},
		{"no credential", Job{ID: "1", URL: "https://example.org"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKnownOptions(t *testing.T) {
	got := KnownOptions([]Option{OptionFullText, "SPEAK_FASTER", OptionEasierWords, ""})
	assert.Equal(t, []Option{OptionFullText, OptionEasierWords}, got)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateQueued, StateProcessing, true},
		{StateQueued, StateFinished, true},
		{StateQueued, StateFailed, true},
		{StateProcessing, StateFinished, true},
		{StateProcessing, StateFailed, true},
		{StateProcessing, StateQueued, false},
		{StateFinished, StateFailed, false},
		{StateFinished, StateProcessing, false},
		{StateFailed, StateFinished, false},
		{StateFinished, StateFinished, false},
		{StateQueued, "paused", false},
		{"paused", StateQueued, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRecordValidate(t *testing.T) {
	assert.NoError(t, Record{State: StateQueued}.Validate())
	assert.NoError(t, Record{State: StateFailed, Error: "ExtractionError: empty page"}.Validate())
	assert.NoError(t, Record{State: StateFinished, ResultReference: "a.mp3"}.Validate())

	assert.Error(t, Record{State: "bogus"}.Validate())
	assert.Error(t, Record{State: StateFinished, Error: "oops"}.Validate())
	assert.Error(t, Record{State: StateFailed, ResultReference: "a.mp3"}.Validate())
}

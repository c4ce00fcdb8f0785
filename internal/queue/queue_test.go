package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsreader/internal/entity"
)

func TestJobCodecWireNames(t *testing.T) {
	job := entity.Job{
		ID:         "8f14e45f-ceea-4a13-a2b6-12f045ad5e8c",
		URL:        "http://example.com/article",
		Options:    []entity.Option{entity.OptionShortLength},
		Credential: "secret-key",
	}

	body, err := encodeJob(job)
	require.NoError(t, err)

	// wire field names are shared with the submitter's message format
	// and must stay stable
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, job.ID, raw["job_id"])
	assert.Equal(t, job.URL, raw["url"])
	assert.Equal(t, "secret-key", raw["api_key"])
	assert.NotContains(t, raw, "file_path")

	decoded, err := decodeJob(body)
	require.NoError(t, err)
	assert.Equal(t, job, decoded)
}

func TestDecodeJobRejectsMissingID(t *testing.T) {
	_, err := decodeJob([]byte(`{"url":"http://example.com"}`))
	assert.Error(t, err)
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	_, err := decodeJob([]byte("not json"))
	assert.Error(t, err)
}

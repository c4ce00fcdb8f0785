package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "task_queue", cfg.QueueName)
	assert.Equal(t, 1, cfg.Worker.Prefetch)
	assert.Equal(t, 1, cfg.Worker.SynthConcurrency)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "results", cfg.ResultsDir)
	assert.Equal(t, 2*time.Minute, cfg.Collaborator.HTTPTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUEUE_NAME", "readouts")
	t.Setenv("WORKER_PREFETCH", "3")
	t.Setenv("SVC_TTS_URL", "http://tts.internal:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "readouts", cfg.QueueName)
	assert.Equal(t, 3, cfg.Worker.Prefetch)
	assert.Equal(t, "http://tts.internal:9000", cfg.Collaborator.TTSURL)
}

func TestSanitizeGuardrails(t *testing.T) {
	cfg := Config{}
	cfg.Worker.Prefetch = 0
	cfg.Worker.SynthConcurrency = -2
	cfg.Worker.RetryDelay = 0
	cfg.Sanitize()

	assert.Equal(t, 1, cfg.Worker.Prefetch)
	assert.Equal(t, 1, cfg.Worker.SynthConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Worker.RetryDelay)
	assert.Equal(t, "task_queue", cfg.QueueName)
}

package condense

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsreader/internal/entity"
)

func TestSegmentReturnsOrderedPhrases(t *testing.T) {
	var gotAuth string
	var gotReq segmentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(segmentResponse{
			Segments: []string{"first phrase", "second phrase", "third phrase"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	segs, err := c.Segment(context.Background(), "full article text",
		[]entity.Option{entity.OptionShortLength, entity.OptionEasierWords}, "the-key")
	require.NoError(t, err)

	assert.Equal(t, []string{"first phrase", "second phrase", "third phrase"}, segs)
	assert.Equal(t, "Bearer the-key", gotAuth)
	assert.Equal(t, "full article text", gotReq.Text)
	assert.Equal(t, []entity.Option{entity.OptionShortLength, entity.OptionEasierWords}, gotReq.Options)
}

func TestSegmentUnauthorizedIsCredentialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Segment(context.Background(), "text", nil, "bad-key")
	assert.ErrorIs(t, err, entity.ErrInvalidCredential)
}

func TestSegmentProviderKeyMessageIsCredentialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"API key not valid. Please pass a valid API key."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Segment(context.Background(), "text", nil, "bad-key")
	assert.ErrorIs(t, err, entity.ErrInvalidCredential)
}

func TestSegmentGenericFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Segment(context.Background(), "text", nil, "good-key")
	assert.ErrorIs(t, err, entity.ErrSegmentation)
	assert.NotErrorIs(t, err, entity.ErrInvalidCredential)
}

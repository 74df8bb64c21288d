package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToSequence_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sequences/seq-42/contacts", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var c Contact
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		assert.Equal(t, "ada@acme.com", c.Email)
		assert.Equal(t, "Quick question", c.Subject)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			ContactID:  "ct-1",
			SequenceID: "seq-42",
			Status:     "queued",
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.AddToSequence(context.Background(), "seq-42", Contact{
		FirstName: "Ada",
		Email:     "ada@acme.com",
		Subject:   "Quick question",
		Body:      "Hi Ada",
	})

	require.NoError(t, err)
	assert.Equal(t, "ct-1", got.ContactID)
	assert.Equal(t, "queued", got.Status)
}

func TestAddToSequence_Validation(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key")

	_, err := client.AddToSequence(context.Background(), "", Contact{Email: "a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence id")

	_, err = client.AddToSequence(context.Background(), "seq-1", Contact{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact email")
}

func TestAddToSequence_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.AddToSequence(context.Background(), "seq-1", Contact{Email: "a@b.com"})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus())
}

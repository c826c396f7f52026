package instantly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

func testCreds() Credentials {
	return Credentials{APIKey: "ik", ListID: "list-1", CampaignID: "camp-1"}
}

func TestClient_AddLead(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ik", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testCreds(), WithBaseURL(srv.URL))
	err := c.AddLead(context.Background(), Lead{
		Email:       "owner@biz.example",
		CompanyName: "Pipe Dreams Ltd",
	})
	require.NoError(t, err)

	assert.Equal(t, "list-1", got["list_id"])
	assert.Equal(t, "camp-1", got["campaign"])
	assert.Equal(t, "owner@biz.example", got["email"])
}

func TestClient_AddLead_NoEmail(t *testing.T) {
	t.Parallel()

	c := NewClient(testCreds(), WithBaseURL("http://unused.example"))
	err := c.AddLead(context.Background(), Lead{})
	require.Error(t, err)
}

func TestClient_AddLeadsFromRecords_PartialFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload["email"] == "bad@biz.example" {
			http.Error(w, "rejected", http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testCreds(), WithBaseURL(srv.URL))
	records := []model.EnrichedRecord{
		{Email: "good@biz.example", EmailFirstName: "Ann"},
		{Email: "bad@biz.example"},
		{}, // no email: skipped entirely
	}

	ok, failed := c.AddLeadsFromRecords(context.Background(), records)
	assert.Equal(t, []string{"good@biz.example"}, ok)
	assert.Equal(t, []string{"bad@biz.example"}, failed)
}

package testutil

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/airtable/pkg/json"
)

func fakeGet(t *testing.T, f *FakeAirtable, path, key string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.URL()+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestFakeRejectsBadToken(t *testing.T) {
	f := NewFakeAirtable(t, "appFake")
	resp, body := fakeGet(t, f, "/v0/meta/bases/appFake/tables", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "error")
}

func TestFakePaginates(t *testing.T) {
	f := NewFakeAirtable(t, "appFake")
	table := f.AddTable("Tasks", FakeField{Name: "Name", Type: "singleLineText"})
	for i := 0; i < 5; i++ {
		f.SeedRecords(table.ID, map[string]any{"Name": strings.Repeat("x", i+1)})
	}

	resp, body := fakeGet(t, f, "/v0/appFake/Tasks?pageSize=2", FakeAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["records"], 2)
	assert.Equal(t, "itr2", body["offset"])

	_, body = fakeGet(t, f, "/v0/appFake/Tasks?pageSize=2&offset=itr4", FakeAPIKey)
	assert.Len(t, body["records"], 1)
	assert.NotContains(t, body, "offset")
}

func TestFakeFilterAndOverride(t *testing.T) {
	f := NewFakeAirtable(t, "appFake")
	table := f.AddTable("Tasks", FakeField{Name: "Name", Type: "singleLineText"})
	f.SeedRecords(table.ID, map[string]any{"Name": "a"}, map[string]any{"Name": "b"})

	_, body := fakeGet(t, f, "/v0/appFake/"+table.ID+"?filterByFormula=%7BName%7D%3D%27b%27", FakeAPIKey)
	assert.Len(t, body["records"], 1)

	f.Override(http.MethodGet, "/v0/appFake/", http.StatusServiceUnavailable, `{"error":{"type":"SERVICE_UNAVAILABLE","message":"down"}}`)
	resp, _ := fakeGet(t, f, "/v0/appFake/"+table.ID, FakeAPIKey)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 3, f.RequestCount(http.MethodGet, "/v0/appFake/"))
}

package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

type fakeContactStore struct {
	existing map[string]string // email -> contact id

	created []map[string]string
	updated map[string]map[string]string
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{
		existing: make(map[string]string),
		updated:  make(map[string]map[string]string),
	}
}

func (f *fakeContactStore) FindContactByEmail(_ context.Context, email string) (*hubspot.Object, error) {
	if id, ok := f.existing[email]; ok {
		return &hubspot.Object{ID: id}, nil
	}
	return nil, nil
}

func (f *fakeContactStore) CreateContact(_ context.Context, properties map[string]string) (*hubspot.Object, error) {
	f.created = append(f.created, properties)
	return &hubspot.Object{ID: "new-contact", Properties: properties}, nil
}

func (f *fakeContactStore) UpdateContact(_ context.Context, contactID string, properties map[string]string) (*hubspot.Object, error) {
	f.updated[contactID] = properties
	return &hubspot.Object{ID: contactID, Properties: properties}, nil
}

func TestListRecordsPagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/base-1/Contacts", r.URL.Path)

		if r.URL.Query().Get("offset") == "" {
			json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec1", Fields: map[string]any{"Email": "a@b.test"}}},
				Offset:  "next-page",
			})
			return
		}
		assert.Equal(t, "next-page", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(listResponse{
			Records: []Record{{ID: "rec2", Fields: map[string]any{"Email": "c@d.test"}}},
		})
	}))
	defer server.Close()

	client := NewClient("key-123", "base-1", server.URL)
	records, err := client.ListRecords(context.Background(), "Contacts", "")
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID)
	assert.Equal(t, "rec2", records[1].ID)
}

func TestListRecordsModifiedSinceFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"DATETIME_COMPARE(LAST_MODIFIED_TIME(), '2024-05-01T00:00:00Z') >= 0",
			r.URL.Query().Get("filterByFormula"))
		json.NewEncoder(w).Encode(listResponse{})
	}))
	defer server.Close()

	_, err := NewClient("key", "base", server.URL).ListRecords(context.Background(), "Contacts", "2024-05-01T00:00:00Z")
	require.NoError(t, err)
}

func TestUpdateRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/base-1/Contacts/rec1", r.URL.Path)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "synced", body["fields"]["Status"])
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := NewClient("key", "base-1", server.URL).
		UpdateRecord(context.Background(), "Contacts", "rec1", map[string]any{"Status": "synced"})
	require.NoError(t, err)
}

func syncServer(t *testing.T, records []Record) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse{Records: records})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSyncCreatesAndUpdatesContacts(t *testing.T) {
	server := syncServer(t, []Record{
		{ID: "rec1", Fields: map[string]any{"Email": "new@acme.test", "First Name": "Nina", "Lead Source": "airtable"}},
		{ID: "rec2", Fields: map[string]any{"Email": "known@acme.test", "Phone": "555-0100"}},
		{ID: "rec3", Fields: map[string]any{"First Name": "NoEmail"}},
	})

	store := newFakeContactStore()
	store.existing["known@acme.test"] = "contact-9"

	syncer := NewSyncer(NewClient("key", "base", server.URL), store)
	processed, err := syncer.Sync(context.Background(), SyncOptions{Table: "Contacts"})
	require.NoError(t, err)

	// rec3 has no email and is skipped, not fatal.
	assert.Equal(t, []string{"rec1", "rec2"}, processed)

	require.Len(t, store.created, 1)
	assert.Equal(t, "new@acme.test", store.created[0]["email"])
	assert.Equal(t, "Nina", store.created[0]["firstname"])
	assert.Equal(t, "airtable", store.created[0]["source"])

	require.Contains(t, store.updated, "contact-9")
	assert.Equal(t, "555-0100", store.updated["contact-9"]["phone"])
}

func TestSyncDryRunSkipsWrites(t *testing.T) {
	server := syncServer(t, []Record{
		{ID: "rec1", Fields: map[string]any{"Email": "new@acme.test"}},
	})

	store := newFakeContactStore()
	syncer := NewSyncer(NewClient("key", "base", server.URL), store)

	processed, err := syncer.Sync(context.Background(), SyncOptions{Table: "Contacts", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"rec1"}, processed)
	assert.Empty(t, store.created)
	assert.Empty(t, store.updated)
}

func TestMapRecordDropsEmptyValues(t *testing.T) {
	properties, err := mapRecord(Record{
		ID: "rec1",
		Fields: map[string]any{
			"Email":      "a@b.test",
			"First Name": "",
			"Phone":      nil,
		},
	}, DefaultFieldMapping())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"email": "a@b.test"}, properties)
}

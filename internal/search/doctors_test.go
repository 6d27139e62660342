package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type fakeCluster struct {
	mu       sync.Mutex
	requests []recorded
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/" {
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
		return
	}

	f.handle(w, r)
}

func (f *fakeCluster) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestIndex(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*DoctorIndex, *fakeCluster) {
	t.Helper()

	fc := &fakeCluster{handle: handle}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)

	return NewDoctorIndex(client, "doctors"), fc
}

func TestSearchDoctors_BuildsFuzzyQueryAndDecodesHits(t *testing.T) {
	idx, fc := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"hits": {
				"total": {"value": 12, "relation": "eq"},
				"hits": [
					{"_id": "d1", "_source": {"id": "d1", "name": "Ada Lovelace", "designation": "Cardiologist", "appointmentFee": 80}},
					{"_id": "d2", "_source": {"id": "d2", "name": "Alan Turing", "designation": "Neurologist", "appointmentFee": 120}}
				]
			}
		}`)
	})

	total, docs, err := idx.SearchDoctors(context.Background(), "cardio", 2, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(12), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "Ada Lovelace", docs[0].Name)
	assert.Equal(t, int64(120), docs[1].AppointmentFee)

	req := fc.last()
	assert.Equal(t, "/doctors/_search", req.path)
	assert.Equal(t, float64(5), req.body["from"])
	assert.Equal(t, float64(5), req.body["size"])

	mm := req.body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "cardio", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
}

func TestSearchDoctors_EmptyQueryMatchesAll(t *testing.T) {
	idx, fc := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":0},"hits":[]}}`)
	})

	total, docs, err := idx.SearchDoctors(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, docs)

	req := fc.last()
	_, ok := req.body["query"].(map[string]any)["match_all"]
	assert.True(t, ok)
	assert.Equal(t, float64(0), req.body["from"])
	assert.Equal(t, float64(10), req.body["size"])
}

func TestSearchDoctors_ClusterError(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"parsing_exception"}}`)
	})

	_, _, err := idx.SearchDoctors(context.Background(), "x", 1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestIndexDoctor_PutsDocumentByID(t *testing.T) {
	idx, fc := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	doc := DoctorFromProfile(user.Doctor{ID: "d1", Email: "doc@x.io", Name: "Ada", Designation: "GP", AppointmentFee: 50})
	require.NoError(t, idx.IndexDoctor(context.Background(), doc))

	req := fc.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/doctors/_doc/d1", req.path)
	assert.True(t, strings.Contains(req.query, "refresh=true"))
	assert.Equal(t, "Ada", req.body["name"])
}

func TestDeleteDoctor_MissingIsNotAnError(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	})

	require.NoError(t, idx.DeleteDoctor(context.Background(), "gone"))
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	idx, fc := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	})

	require.NoError(t, idx.EnsureIndex(context.Background()))

	req := fc.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/doctors", req.path)
	assert.Contains(t, req.body, "mappings")
}

func TestDisabled(t *testing.T) {
	var d Disabled
	_, _, err := d.SearchDoctors(context.Background(), "x", 1, 1)
	assert.True(t, errors.Is(err, ErrDisabled))
	assert.ErrorIs(t, d.IndexDoctor(context.Background(), Doctor{}), ErrDisabled)
}

func TestOpen(t *testing.T) {
	ix, err := Open(context.Background(), Config{}, "doctors")
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, ix)

	fc := &fakeCluster{handle: func(w http.ResponseWriter, r *http.Request) {
		// HEAD /doctors: index already there
		w.WriteHeader(http.StatusOK)
	}}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)

	ix, err = Open(context.Background(), Config{URL: srv.URL}, "doctors")
	require.NoError(t, err)
	assert.IsType(t, &DoctorIndex{}, ix)
	assert.Equal(t, http.MethodHead, fc.last().method)
}

package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"expertimport/internal/strapi"
)

// fakeCMS is a minimal in-memory Strapi v5: consultants, properties,
// timeline-items and uploads.
type fakeCMS struct {
	mu          sync.Mutex
	nextID      int
	requests    int
	consultants []map[string]any
	properties  []map[string]any
	timeline    []map[string]any
	uploads     []string
	uploadIDs   []int
	// fail maps "METHOD /path" to a status code to return instead.
	fail map[string]int
}

func newFakeCMS(t *testing.T) (*fakeCMS, *strapi.Client) {
	t.Helper()
	f := &fakeCMS{nextID: 100, fail: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/consultants", f.listConsultants)
	mux.HandleFunc("POST /api/consultants", f.create(&f.consultants))
	mux.HandleFunc("PUT /api/consultants/{doc}", f.updateConsultant)
	mux.HandleFunc("POST /api/properties", f.create(&f.properties))
	mux.HandleFunc("POST /api/timeline-items", f.create(&f.timeline))
	mux.HandleFunc("POST /api/upload", f.upload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		status, failing := f.fail[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer token" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if failing {
			http.Error(w, `{"error":{"message":"injected"}}`, status)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return f, strapi.NewClient(srv.URL, "token", srv.Client())
}

func (f *fakeCMS) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeCMS) listConsultants(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	email := q.Get("filters[contactInfo][Email][$eq]")
	first, last := q.Get("filters[firstName][$eq]"), q.Get("filters[lastName][$eq]")

	matches := []map[string]any{}
	for _, c := range f.consultants {
		if email != "" {
			contact, _ := c["contactInfo"].(map[string]any)
			if contact["Email"] == email {
				matches = append(matches, c)
			}
			continue
		}
		if c["firstName"] == first && c["lastName"] == last {
			matches = append(matches, c)
		}
	}
	writeJSON(w, map[string]any{"data": matches})
}

func (f *fakeCMS) create(into *[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := decodeData(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.nextID++
		// float64 so tests compare like-for-like with decoded relations.
		data["id"] = float64(f.nextID)
		data["documentId"] = fmt.Sprintf("doc%d", f.nextID)
		*into = append(*into, data)
		f.mu.Unlock()

		writeJSON(w, map[string]any{"data": data})
	}
}

func (f *fakeCMS) updateConsultant(w http.ResponseWriter, r *http.Request) {
	data, err := decodeData(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	doc := r.PathValue("doc")
	for i, c := range f.consultants {
		if c["documentId"] == doc {
			data["id"] = c["id"]
			data["documentId"] = doc
			f.consultants[i] = data
			writeJSON(w, map[string]any{"data": data})
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeCMS) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) != 1 {
		http.Error(w, "expected one file", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.uploads = append(f.uploads, files[0].Filename)
	f.uploadIDs = append(f.uploadIDs, id)
	f.mu.Unlock()

	writeJSON(w, []map[string]any{{"id": id, "name": files[0].Filename}})
}

func decodeData(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("missing data")
	}
	return env.Data, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

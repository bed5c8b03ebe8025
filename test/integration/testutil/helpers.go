//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// GET performs a GET request against the test server.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a JSON POST request against the test server.
func (env *TestEnv) POST(path string, body interface{}) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AppendEvent appends one event to a subject's log and returns the
// stamped sequence number.
func (env *TestEnv) AppendEvent(subjectID uuid.UUID, eventType string, payload interface{}) int64 {
	env.t.Helper()
	resp := env.POST("/subjects/"+subjectID.String()+"/events", map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	})
	AssertStatus(env.t, resp, http.StatusCreated)

	var rec struct {
		Seq int64 `json:"seq"`
	}
	DecodeJSON(env.t, resp, &rec)
	return rec.Seq
}

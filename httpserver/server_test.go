package httpserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wordrace/config"
	"wordrace/domain/entities"
	"wordrace/infrastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, fake *infrastructure.FakeAdapter) *httptest.Server {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	registry := infrastructure.NewRegistry([]entities.ModelSpec{
		{ID: "m1", Name: "Model One"},
		{ID: "m2", Name: "Model Two"},
	})
	srv := httptest.NewServer(New(registry, fake).Router())
	t.Cleanup(srv.Close)
	return srv
}

// postJSON posts a body and returns the response.
func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

// readFrames parses every `data:` SSE frame from the response body.
func readFrames(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var frames []map[string]any
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		frames = append(frames, frame)
	}
	require.NoError(t, scanner.Err())
	return frames
}

func TestHealthAndIndex(t *testing.T) {
	srv := testServer(t, infrastructure.NewFakeAdapter())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListModels(t *testing.T) {
	srv := testServer(t, infrastructure.NewFakeAdapter())

	resp, err := http.Get(srv.URL + "/api/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Models []entities.ModelSpec `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Models, 2)
	assert.Equal(t, "m1", body.Models[0].ID)
}

func TestCrosswordStream_InvalidRequests(t *testing.T) {
	srv := testServer(t, infrastructure.NewFakeAdapter())

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "no models", body: map[string]any{"rounds": []any{}}},
		{
			name: "unknown model id",
			body: map[string]any{"models": []any{"ghost"}, "rounds": []any{}},
		},
		{
			name: "no rounds",
			body: map[string]any{"models": []any{"m1"}},
		},
		{
			name: "clue without length",
			body: map[string]any{
				"models": []any{"m1"},
				"rounds": []any{map[string]any{
					"id":    "r1",
					"clues": []any{map[string]any{"id": "c1", "prompt": "p", "answer": "cat"}},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/race/stream", tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "invalid_request", body["error"])
		})
	}
}

func TestCrosswordStream_ModelCap(t *testing.T) {
	testCfg := config.NewTestConfig()
	testCfg.PublicMaxModels = 2
	config.SetTestConfig(testCfg)
	t.Cleanup(config.ResetConfig)

	registry := infrastructure.NewRegistry(nil)
	srv := httptest.NewServer(New(registry, infrastructure.NewFakeAdapter()).Router())
	t.Cleanup(srv.Close)

	over := map[string]any{
		"models": []any{
			map[string]any{"id": "a"}, map[string]any{"id": "b"}, map[string]any{"id": "c"},
		},
		"rounds": []any{},
	}
	resp := postJSON(t, srv.URL+"/api/race/stream", over)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCrosswordStream_EndToEnd(t *testing.T) {
	fake := infrastructure.NewFakeAdapter()
	fake.ScriptText("m1", `{"answer":"paris"}`, 5*time.Millisecond)
	fake.ScriptText("m2", `{"answer":"rome"}`, 10*time.Millisecond)
	srv := testServer(t, fake)

	body := map[string]any{
		"name":   "integration",
		"models": []any{"m1", "m2"},
		"rounds": []any{map[string]any{
			"id": "r1",
			"clues": []any{map[string]any{
				"id": "c1", "prompt": "Capital of France (5)", "answer": "paris", "length": 5,
			}},
		}},
	}
	resp := postJSON(t, srv.URL+"/api/race/stream", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	frames := readFrames(t, resp)
	require.NotEmpty(t, frames)
	assert.Equal(t, "config", frames[0]["type"])
	assert.Equal(t, "state", frames[1]["type"])
	assert.Equal(t, "complete", frames[len(frames)-1]["type"])

	var clueSeen bool
	for _, f := range frames {
		if f["type"] == "clue" {
			clueSeen = true
			attempts, ok := f["attempts"].([]any)
			require.True(t, ok)
			assert.Len(t, attempts, 2)
		}
	}
	assert.True(t, clueSeen)

	final := frames[len(frames)-1]["result"].(map[string]any)
	scores := final["model_scores"].([]any)
	first := scores[0].(map[string]any)
	assert.Equal(t, "m1", first["model_id"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestWordleStream_EndToEnd(t *testing.T) {
	fake := infrastructure.NewFakeAdapter()
	fake.ScriptText("m1", "slate", 0)
	fake.ScriptText("m1", "crane", 0)
	srv := testServer(t, fake)

	body := map[string]any{
		"models":      []any{"m1"},
		"target_word": "crane",
	}
	resp := postJSON(t, srv.URL+"/api/wordle/stream", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frames := readFrames(t, resp)
	require.NotEmpty(t, frames)
	assert.Equal(t, "config", frames[0]["type"])

	// Target withheld from the opening config by default.
	cfg := frames[0]["config"].(map[string]any)
	assert.NotContains(t, cfg, "target_word")

	last := frames[len(frames)-1]
	require.Equal(t, "complete", last["type"])
	result := last["result"].(map[string]any)
	assert.Equal(t, "m1", result["winner"])
	assert.Equal(t, "crane", result["target_word"])

	var guesses int
	for _, f := range frames {
		if f["type"] == "guess" {
			guesses++
		}
	}
	assert.Equal(t, 2, guesses)
}

func TestWordleStream_IncludeUserRevealsTarget(t *testing.T) {
	fake := infrastructure.NewFakeAdapter()
	fake.ScriptText("m1", "crane", 0)
	srv := testServer(t, fake)

	body := map[string]any{
		"models":       []any{"m1"},
		"target_word":  "crane",
		"include_user": true,
	}
	resp := postJSON(t, srv.URL+"/api/wordle/stream", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frames := readFrames(t, resp)
	cfg := frames[0]["config"].(map[string]any)
	assert.Equal(t, "crane", cfg["target_word"])
}

func TestWordleStream_BadTarget(t *testing.T) {
	srv := testServer(t, infrastructure.NewFakeAdapter())

	resp := postJSON(t, srv.URL+"/api/wordle/stream", map[string]any{
		"models":      []any{"m1"},
		"target_word": "toolong",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEndEarly_UnknownRace(t *testing.T) {
	srv := testServer(t, infrastructure.NewFakeAdapter())

	resp := postJSON(t, srv.URL+"/api/wordle/nope/end", map[string]any{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestModelRef_Unmarshal(t *testing.T) {
	var refs []ModelRef
	payload := `["m1", {"id":"inline", "name":"Inline Model", "endpoint_ref":"http://localhost:1234/v1"}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &refs))

	require.Len(t, refs, 2)
	assert.Equal(t, "m1", refs[0].ID)
	assert.Nil(t, refs[0].Spec)
	require.NotNil(t, refs[1].Spec)
	assert.Equal(t, "inline", refs[1].Spec.ID)
}

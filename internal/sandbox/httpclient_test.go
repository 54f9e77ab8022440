package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientLifecycle(t *testing.T) {
	var deleted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/sandboxes":
			json.NewEncoder(w).Encode(map[string]string{"id": "sb-9"})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/sandboxes/sb-9/exec":
			var req struct {
				Code string `json:"code"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(Output{Stdout: "got: " + req.Code, Stderr: ""})
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/sandboxes/sb-9":
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewHTTPClient(srv.URL, "secret")

	id, err := client.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sb-9", id)

	out, err := client.Execute(ctx, id, "print(2)")
	require.NoError(t, err)
	assert.Equal(t, "got: print(2)", out.Stdout)

	require.NoError(t, client.Close(ctx, id))
	assert.True(t, deleted)
}

func TestHTTPClientErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	_, err := client.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "no capacity")
}

func TestHTTPClientEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	_, err := client.Connect(context.Background())
	assert.Error(t, err)
}

package embedding

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "https://api.together.xyz/v1" {
		t.Errorf("BaseURL = %v, want https://api.together.xyz/v1", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestNewService_FillsDefaults(t *testing.T) {
	svc := NewService(&Config{APIKey: "k"})
	assert.Equal(t, DefaultConfig().Model, svc.Model())

	svc = NewService(nil)
	assert.Equal(t, DefaultConfig().Model, svc.Model())
}

func TestService_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	svc := NewService(&Config{BaseURL: srv.URL + "/v1", Model: "m"})
	vec, err := svc.Embed(context.Background(), "most rushing yards 2023")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = svc.Embed(context.Background(), "")
	assert.Error(t, err)
}

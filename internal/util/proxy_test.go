package util

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyFunc_SchemeSelection(t *testing.T) {
	proxy := NewProxyFunc("http://plain:3128", "http://secure:3129")

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/embeddings", nil)
	u, err := proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "secure:3129", u.Host)

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:11434/api/embed", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "plain:3128", u.Host)
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5*time.Second, "", "")
	assert.Equal(t, 5*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.Proxy)
}

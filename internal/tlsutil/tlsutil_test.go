package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTLSConfig(t *testing.T) {
	cfg := ClientTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.NotEmpty(t, cfg.CipherSuites)

	for _, cs := range cfg.CipherSuites {
		assert.Contains(t, aeadSuites, cs, "unexpected non-AEAD cipher suite: %d", cs)
	}

	cfg.CipherSuites[0] = tls.TLS_RSA_WITH_AES_128_CBC_SHA
	assert.Equal(t, aeadSuites[0], ClientTLSConfig().CipherSuites[0], "callers get their own copy")
}

func TestPlannerClient(t *testing.T) {
	client := PlannerClient(15*time.Second, 0)
	assert.Equal(t, 15*time.Second, client.Timeout)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.ForceAttemptHTTP2)
	assert.Equal(t, http.DefaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)

	tr = PlannerClient(time.Second, 32).Transport.(*http.Transport)
	assert.Equal(t, 32, tr.MaxIdleConnsPerHost)
}

func TestBackendDialClient(t *testing.T) {
	client := BackendDialClient()
	assert.Zero(t, client.Timeout, "the upgraded connection outlives the handshake")

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.False(t, tr.ForceAttemptHTTP2, "websocket upgrade needs HTTP/1.1")
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
}

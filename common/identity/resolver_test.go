package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/cdn/common/cache"
	"github.com/lyzr/cdn/common/clients"
	"github.com/lyzr/cdn/common/logger"
	"github.com/lyzr/cdn/common/models"
	"github.com/lyzr/cdn/common/security"
)

const testDID = models.ActorID("did:plc:ewvi7nxzyoun6zhxrhs64oiz")

func pdsDoc(did, endpoint string) map[string]any {
	return map[string]any{
		"id": did,
		"service": []map[string]any{
			{"id": "#atproto_pds", "type": "AtprotoPersonalDataServer", "serviceEndpoint": endpoint},
		},
	}
}

func newPLC(t *testing.T, docs map[string]any, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		doc, ok := docs[r.URL.Path[1:]]
		if !ok {
			http.Error(w, `{"message":"DID not registered"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/did+ld+json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(baseURL string) *DIDResolver {
	log := logger.Discard()
	return NewDIDResolver(baseURL, clients.NewHTTPClient(http.DefaultClient, "test", log), 5*time.Second, log)
}

func TestResolveOrigin_PLC(t *testing.T) {
	plc := newPLC(t, map[string]any{
		string(testDID): pdsDoc(string(testDID), "https://pds.example.com/"),
	}, nil)

	endpoint, err := newResolver(plc.URL).ResolveOrigin(context.Background(), testDID)
	require.NoError(t, err)
	assert.Equal(t, "https://pds.example.com", endpoint)
}

func TestResolveOrigin_FullyQualifiedServiceID(t *testing.T) {
	doc := map[string]any{
		"id": string(testDID),
		"service": []map[string]any{
			{"id": "#atproto_labeler", "type": "AtprotoLabeler", "serviceEndpoint": "https://labeler.example.com"},
			{"id": string(testDID) + "#atproto_pds", "type": "AtprotoPersonalDataServer", "serviceEndpoint": "https://pds2.example.com"},
		},
	}
	plc := newPLC(t, map[string]any{string(testDID): doc}, nil)

	endpoint, err := newResolver(plc.URL).ResolveOrigin(context.Background(), testDID)
	require.NoError(t, err)
	assert.Equal(t, "https://pds2.example.com", endpoint)
}

func TestResolveOrigin_NoPDS(t *testing.T) {
	plc := newPLC(t, map[string]any{
		string(testDID): map[string]any{"id": string(testDID), "service": []any{}},
	}, nil)

	_, err := newResolver(plc.URL).ResolveOrigin(context.Background(), testDID)
	assert.ErrorIs(t, err, ErrNoOriginEndpoint)
	assert.NotErrorIs(t, err, ErrResolutionFailed)
}

func TestResolveOrigin_InvalidEndpoint(t *testing.T) {
	plc := newPLC(t, map[string]any{
		string(testDID): pdsDoc(string(testDID), "ftp://pds.example.com"),
	}, nil)

	_, err := newResolver(plc.URL).ResolveOrigin(context.Background(), testDID)
	assert.ErrorIs(t, err, ErrNoOriginEndpoint)
}

func TestResolveOrigin_Failures(t *testing.T) {
	plc := newPLC(t, map[string]any{
		"did:plc:mismatch": pdsDoc("did:plc:someoneelse", "https://pds.example.com"),
	}, nil)
	r := newResolver(plc.URL)

	_, err := r.ResolveOrigin(context.Background(), "did:plc:unknown")
	assert.ErrorIs(t, err, ErrResolutionFailed)

	_, err = r.ResolveOrigin(context.Background(), "did:plc:mismatch")
	assert.ErrorIs(t, err, ErrResolutionFailed)

	_, err = r.ResolveOrigin(context.Background(), "did:example:abc")
	assert.ErrorIs(t, err, ErrResolutionFailed)

	_, err = newResolver("http://127.0.0.1:1").ResolveOrigin(context.Background(), testDID)
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestResolveOrigin_Web(t *testing.T) {
	did := "did:web:example.com"
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_ = json.NewEncoder(w).Encode(pdsDoc(did, "https://pds.example.com"))
	}))
	defer srv.Close()

	r := newResolver("https://plc.invalid")
	var host string
	r.webURL = func(h string) string {
		host = h
		return srv.URL + "/.well-known/did.json"
	}

	endpoint, err := r.ResolveOrigin(context.Background(), models.ActorID(did))
	require.NoError(t, err)
	assert.Equal(t, "https://pds.example.com", endpoint)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/.well-known/did.json", requested)
}

func TestResolveOrigin_WebRejectsPrivateHost(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	port := srv.Listener.Addr().(*net.TCPAddr).Port
	did := models.ActorID(fmt.Sprintf("did:web:127.0.0.1%%3A%d", port))

	r := newResolver("https://plc.invalid").WithValidator(security.NewURLValidator())
	r.webURL = func(h string) string {
		return "http://" + h + "/.well-known/did.json"
	}

	_, err := r.ResolveOrigin(context.Background(), did)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Contains(t, err.Error(), "did:web host rejected")
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestResolveOrigin_FailureHidesDocumentURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := newResolver("https://plc.invalid")
	r.webURL = func(string) string { return srv.URL + "/.well-known/did.json" }

	_, err := r.ResolveOrigin(context.Background(), "did:web:example.com")
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Contains(t, err.Error(), "status 403")
	assert.NotContains(t, err.Error(), srv.URL)

	_, err = newResolver("http://127.0.0.1:1").ResolveOrigin(context.Background(), testDID)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.NotContains(t, err.Error(), "127.0.0.1:1/")
}

func TestResolveOrigin_PLCSkipsHostValidator(t *testing.T) {
	plc := newPLC(t, map[string]any{
		string(testDID): pdsDoc(string(testDID), "https://pds.example.com"),
	}, nil)

	r := newResolver(plc.URL).WithValidator(security.NewURLValidator())
	endpoint, err := r.ResolveOrigin(context.Background(), testDID)
	require.NoError(t, err)
	assert.Equal(t, "https://pds.example.com", endpoint)
}

func TestDocumentURL_Web(t *testing.T) {
	r := newResolver("https://plc.directory")

	u, err := r.documentURL("did:web:example.com%3A8443")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443/.well-known/did.json", u)

	_, err = r.documentURL("did:web:example.com:user:alice")
	assert.ErrorIs(t, err, ErrResolutionFailed)

	u, err = r.documentURL(testDID)
	require.NoError(t, err)
	assert.Equal(t, "https://plc.directory/"+string(testDID), u)
}

type countingResolver struct {
	calls    int32
	endpoint string
	err      error
}

func (c *countingResolver) ResolveOrigin(ctx context.Context, actor models.ActorID) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.endpoint, c.err
}

func TestCachingResolver(t *testing.T) {
	log := logger.Discard()
	mem := cache.NewMemoryCache(log)
	defer mem.Close()

	inner := &countingResolver{endpoint: "https://pds.example.com"}
	r := NewCachingResolver(inner, mem, time.Minute, log)

	for i := 0; i < 3; i++ {
		endpoint, err := r.ResolveOrigin(context.Background(), testDID)
		require.NoError(t, err)
		assert.Equal(t, "https://pds.example.com", endpoint)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	require.NoError(t, mem.Delete(context.Background(), "identity:"+string(testDID)))
	_, err := r.ResolveOrigin(context.Background(), testDID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestCachingResolver_DoesNotCacheFailures(t *testing.T) {
	log := logger.Discard()
	mem := cache.NewMemoryCache(log)
	defer mem.Close()

	inner := &countingResolver{err: ErrNoOriginEndpoint}
	r := NewCachingResolver(inner, mem, time.Minute, log)

	for i := 0; i < 2; i++ {
		_, err := r.ResolveOrigin(context.Background(), testDID)
		assert.ErrorIs(t, err, ErrNoOriginEndpoint)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

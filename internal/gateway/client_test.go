package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatescan/terminal/internal/model"
	"github.com/gatescan/terminal/internal/session"
)

// unreachableURL points at a port nothing listens on, forcing a transport
// failure without waiting for a DNS timeout.
const unreachableURL = "http://127.0.0.1:1"

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	store := session.NewMemoryStore()
	return NewClient(server.URL, store), store
}

func TestLogin_storesToken(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, BasePath+"/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "login must not carry a bearer token")

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "operator", req.Username)

		json.NewEncoder(w).Encode(LoginResponse{Token: "jwt-token-1"})
	}))

	resp, err := client.Login(context.Background(), LoginRequest{Username: "operator", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token-1", resp.Token)
	assert.Equal(t, "jwt-token-1", store.Token(), "login should persist the session token")
}

func TestLogin_invalidCredentialsNotMasked(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid username or password"})
	}))

	_, err := client.Login(context.Background(), LoginRequest{Username: "operator", Password: "wrong"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid username or password", apiErr.Error())
	assert.Empty(t, store.Token())
}

func TestLogin_noOfflineFallback(t *testing.T) {
	store := session.NewMemoryStore()
	client := NewClient(unreachableURL, store)

	_, err := client.Login(context.Background(), LoginRequest{Username: "operator", Password: "secret"})
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr, "an unreachable gateway must not mint credentials")
	assert.Empty(t, store.Token())
}

func TestScan_carriesBearerToken(t *testing.T) {
	var gotAuth string
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ScanResponse{Valid: false, Error: "not found"})
	}))
	require.NoError(t, store.SetToken("jwt-token-1"))

	resp, err := client.Scan(context.Background(), ScanRequest{QRCode: "QR123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-token-1", gotAuth)
	assert.False(t, resp.Valid)
	assert.Equal(t, "not found", resp.Error)
}

func TestScan_serverErrorSurfacedVerbatim(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("submission store offline"))
	}))

	_, err := client.Scan(context.Background(), ScanRequest{QRCode: "QR123"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr, "a real server error must not be replaced by the mock fallback")
	assert.Equal(t, "submission store offline", apiErr.Message)
}

func TestOfflineFallback_scanVerifyReject(t *testing.T) {
	store := session.NewMemoryStore()
	client := NewClient(unreachableURL, store)
	ctx := context.Background()

	scanResp, err := client.Scan(ctx, ScanRequest{QRCode: "QR123"})
	require.NoError(t, err, "scan falls back to the canned submission offline")
	require.True(t, scanResp.Valid)
	require.NotNil(t, scanResp.Submission)
	assert.Equal(t, "mock-sub-1", scanResp.Submission.ID)
	assert.Equal(t, "Acme Logistics", scanResp.Submission.CompanyName)
	assert.Equal(t, model.StatusPending, scanResp.Submission.Status)
	assert.False(t, scanResp.Submission.Expired(time.Now()), "mock submission must be unexpired")

	verifyResp, err := client.Verify(ctx, VerifyRequest{SubmissionID: scanResp.Submission.ID})
	require.NoError(t, err)
	assert.Equal(t, "GT-784213", verifyResp.TokenNumber)
	assert.True(t, verifyResp.SMSStatus.Sent)
	assert.Equal(t, "mock", verifyResp.SMSStatus.Provider)

	rejectResp, err := client.Reject(ctx, RejectRequest{SubmissionID: scanResp.Submission.ID, Reason: "missing papers"})
	require.NoError(t, err)
	assert.True(t, rejectResp.Success)
}

func TestLogout_clearsSessionForSubsequentCalls(t *testing.T) {
	var gotAuth string
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ScanResponse{Valid: false, Error: "not found"})
	}))
	require.NoError(t, store.SetToken("jwt-token-1"))

	require.NoError(t, client.Logout())
	assert.Empty(t, store.Token())

	_, err := client.Scan(context.Background(), ScanRequest{QRCode: "QR123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer ", gotAuth, "no prior credential may leak into calls after logout")
}

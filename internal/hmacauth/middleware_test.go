package hmacauth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedVerifier(now time.Time) *Verifier {
	return &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	}
}

func TestMiddleware_AllowsValidSignature(t *testing.T) {
	body := `{"recipient":"0x0000000000000000000000000000000000000001"}`
	now := time.Unix(1_700_000_000, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", strings.NewReader(body))
	require.NoError(t, SignRequest(req, "secret", now))
	rec := httptest.NewRecorder()

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		w.WriteHeader(http.StatusOK)
	})
	fixedVerifier(now).Middleware(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, body, seen, "body must be replayed to the handler")
}

func TestMiddleware_RejectsInvalidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", strings.NewReader(`{}`))
	req.Header.Set(HeaderSignature, "deadbeef")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	rec := httptest.NewRecorder()

	fixedVerifier(now).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_SignatureCoversPath(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := Sign("secret", ts, http.MethodPost, "/api/v1/claims", []byte(`{}`))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", strings.NewReader(`{}`))
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, ts)

	require.ErrorIs(t, fixedVerifier(now).verify(req), ErrInvalidSignature)
}

func TestMiddleware_RejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", strings.NewReader(`{}`))
	require.NoError(t, SignRequest(req, "secret", now.Add(-2*time.Minute)))

	require.ErrorIs(t, fixedVerifier(now).verify(req), ErrStaleTimestamp)
}

func TestMiddleware_MissingHeaders(t *testing.T) {
	v := fixedVerifier(time.Unix(1_700_000_000, 0))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	require.ErrorIs(t, v.verify(req), ErrMissingSignature)

	req.Header.Set(HeaderSignature, "abc")
	require.ErrorIs(t, v.verify(req), ErrMissingTimestamp)
}

func TestMiddleware_DisabledWithoutSecret(t *testing.T) {
	v := &Verifier{}
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	require.NoError(t, v.verify(req))
}

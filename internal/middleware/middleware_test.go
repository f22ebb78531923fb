package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestClientTokenRoundTrip(t *testing.T) {
	auth := NewJWTAuth("secret")
	clientID := uuid.New()

	token, err := auth.GenerateClientToken(clientID)
	require.NoError(t, err)

	got, err := auth.ParseClientToken(token)
	require.NoError(t, err)
	assert.Equal(t, clientID, got)

	_, err = NewJWTAuth("other-secret").ParseClientToken(token)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	auth := NewJWTAuth("secret")
	clientID := uuid.New()
	valid, err := auth.GenerateClientToken(clientID)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id": clientID.String(),
		"exp":       time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Token " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen uuid.UUID
			h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetClientID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.code == "" {
				assert.Equal(t, clientID, seen)
				return
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestStaticBearer(t *testing.T) {
	h := StaticBearer("anon")(http.HandlerFunc(okHandler))

	for header, want := range map[string]int{
		"Bearer anon":  http.StatusOK,
		"Bearer other": http.StatusUnauthorized,
		"":             http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/climate-chat", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
		if want != http.StatusOK {
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		}
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestCORS(t *testing.T) {
	h := CORS("")(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/functions/v1/speech-to-text", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "x-client-info")

	h = CORS("http://localhost:5173")(http.HandlerFunc(okHandler))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("a"), "window resets")
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	h := rl.Middleware(http.HandlerFunc(okHandler))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestRateLimiterMiddleware_KeysOnHost(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	h := rl.Middleware(http.HandlerFunc(okHandler))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:50001"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:50002"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:50003"), "new source port, same host")
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"), "address already rewritten by RealIP")
	assert.Equal(t, http.StatusOK, send("10.0.0.2:50001"))

	assert.Equal(t, http.StatusOK, send("[2001:db8::1]:40000"))
	assert.Equal(t, http.StatusOK, send("[2001:db8::1]:40001"))
	assert.Equal(t, http.StatusTooManyRequests, send("[2001:db8::1]:40002"))
}

func TestRemoteHost(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.0.2.7:8080", "192.0.2.7"},
		{"192.0.2.7", "192.0.2.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := remoteHost(tc.addr); got != tc.want {
			t.Errorf("remoteHost(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

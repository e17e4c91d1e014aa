package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/catalog-web/internal/i18n"
	"finitefield.org/catalog-web/internal/observability"
)

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func newProtected(s *Sessions, h http.HandlerFunc) http.Handler {
	return HTMX(s.Session(s.CSRF(h)))
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions(SessionOptions{SigningKey: "test-key"})
	var seen string
	handler := s.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r).ID
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := cookieNamed(rr, sessionCookieName)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	first := seen
	require.NotEmpty(t, first)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, first, seen)
	require.Nil(t, cookieNamed(rr, sessionCookieName), "clean session is not rewritten")

	other := NewSessions(SessionOptions{SigningKey: "other-key"})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	other.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r).ID
	})).ServeHTTP(rr, req)
	require.NotEqual(t, first, seen, "forged signature must start a new session")
}

func TestSessionCookieEncryptedWithBlockKey(t *testing.T) {
	s := NewSessions(SessionOptions{SigningKey: "test-key", BlockKey: "0123456789abcdef0123456789abcdef"})
	handler := s.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd := GetSession(r)
		sd.Locale = "ja"
		sd.MarkDirty()
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := cookieNamed(rr, sessionCookieName)
	require.NotNil(t, cookie)

	// A codec without the block key cannot read the payload.
	signedOnly := securecookie.New([]byte("test-key"), nil)
	signedOnly.SetSerializer(securecookie.JSONEncoder{})
	var plain SessionData
	require.Error(t, signedOnly.Decode(sessionCookieName, cookie.Value, &plain))

	var decoded SessionData
	require.NoError(t, s.codec.Decode(sessionCookieName, cookie.Value, &decoded))
	require.Equal(t, "ja", decoded.Locale)
	require.NotEmpty(t, decoded.CSRFToken)
}

func TestSessionIgnoresInvalidBlockKey(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewSessions(SessionOptions{SigningKey: "test-key", BlockKey: "short", Logger: zap.New(core)})
	require.Equal(t, 1, logs.FilterMessageSnippet("block key").Len())

	rr := httptest.NewRecorder()
	s.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, cookieNamed(rr, sessionCookieName))
}

func TestCSRF(t *testing.T) {
	s := NewSessions(SessionOptions{SigningKey: "test-key"})
	handler := newProtected(s, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	session := cookieNamed(rr, sessionCookieName)
	csrf := cookieNamed(rr, csrfCookieName)
	require.NotNil(t, session)
	require.NotNil(t, csrf)
	require.False(t, csrf.HttpOnly)

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("HX-Request", "true")
		req.AddCookie(session)
		req.AddCookie(csrf)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusForbidden, rr.Code)
		var body errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, "invalid CSRF token", body.Error)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(csrfHeaderName, csrf.Value)
		req.AddCookie(session)
		req.AddCookie(csrf)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("form field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(csrfFormField+"="+csrf.Value))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(session)
		req.AddCookie(csrf)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("wrong token as text", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		req.Header.Set(csrfHeaderName, "nope")
		req.AddCookie(session)
		req.AddCookie(csrf)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusForbidden, rr.Code)
		require.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	})
}

func writeLocales(t *testing.T) *i18n.Bundle {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"k":"v"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ja.json"), []byte(`{"k":"ja"}`), 0o600))
	bundle, err := i18n.Load(dir, "en", []string{"en", "ja"})
	require.NoError(t, err)
	return bundle
}

func TestLocaleResolution(t *testing.T) {
	bundle := writeLocales(t)
	s := NewSessions(SessionOptions{SigningKey: "test-key"})
	var lang string
	handler := s.Session(Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang = Lang(r)
	})))

	tests := []struct {
		name   string
		target string
		header string
		cookie string
		want   string
	}{
		{"accept language", "/", "ja-JP,ja;q=0.9", "", "ja"},
		{"query override", "/?hl=ja", "en", "", "ja"},
		{"unsupported query ignored", "/?hl=fr", "en", "", "en"},
		{"cookie", "/", "en", "ja", "ja"},
		{"fallback", "/", "", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("Accept-Language", tt.header)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: localeCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tt.want, lang)
			require.Equal(t, tt.want, rr.Header().Get("Content-Language"))
		})
	}
}

func TestLoggerWritesRequestLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := chiMid.RequestID(observability.InjectLogger(zap.New(core))(HTMX(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("HX-Request", "true")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/products", fields["path"])
	require.EqualValues(t, http.StatusTeapot, fields["status"])
	require.Equal(t, true, fields["htmx"])
	require.NotEmpty(t, fields["request_id"])
	require.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestAssetsWithCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "app.css"), []byte("body{}"), 0o600))
	handler := AssetsWithCache("/assets", dir)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/assets/css/app.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))
	require.Contains(t, rr.Header().Get("Cache-Control"), "max-age=604800")

	req := httptest.NewRequest(http.MethodGet, "/assets/css/app.css", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotModified, rr.Code)
}

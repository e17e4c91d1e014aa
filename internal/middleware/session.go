package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "CATALOG_WEB_SESSION"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// SessionData is the signed, cookie-backed browser session. It carries only
// locale and CSRF state; listing view state lives server-side per page load.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool `json:"-"`
}

// SessionOptions configures the cookie codec.
type SessionOptions struct {
	// SigningKey authenticates the cookie.
	SigningKey string
	// BlockKey optionally encrypts it; it must be 16, 24 or 32 bytes.
	BlockKey string
	Secure   bool
	Logger   *zap.Logger
}

// Sessions encodes and verifies session cookies and guards unsafe requests
// with the session CSRF token.
type Sessions struct {
	codec  *securecookie.SecureCookie
	secure bool
	logger *zap.Logger
}

// NewSessions builds a session codec. Without a signing key a process-local
// key is generated, which invalidates sessions on restart.
func NewSessions(opts SessionOptions) *Sessions {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hashKey := []byte(strings.TrimSpace(opts.SigningKey))
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warn("session: using ephemeral signing key; set CATALOG_WEB_SESSION_SIGNING_KEY outside local development")
	}
	var blockKey []byte
	if bk := strings.TrimSpace(opts.BlockKey); bk != "" {
		switch len(bk) {
		case 16, 24, 32:
			blockKey = []byte(bk)
		default:
			logger.Warn("session: block key must be 16, 24 or 32 bytes; cookies are signed but not encrypted", zap.Int("length", len(bk)))
		}
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(sessionMaxAge / time.Second))
	return &Sessions{codec: codec, secure: opts.Secure, logger: logger}
}

// Session loads or initializes a session and stores it in request context.
func (s *Sessions) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := s.read(r)
		if sd.ID == "" {
			sd.ID = randID()
			sd.CreatedAt = time.Now().UTC()
			sd.UpdatedAt = sd.CreatedAt
			sd.CSRFToken = newCSRFToken()
			sd.dirty = true
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)

		rw := NewResponseRecorder(w)
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				s.write(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		// HEAD and empty responses never trigger the hook.
		if !rw.Written() && (sd.dirty || !fromCookie) {
			s.write(w, sd)
		}
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if v := r.Context().Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing at end of request
func (sd *SessionData) MarkDirty() { sd.dirty = true; sd.UpdatedAt = time.Now().UTC() }

// read decodes and verifies the session cookie.
func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := s.codec.Decode(sessionCookieName, c.Value, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (s *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	val, err := s.codec.Encode(sessionCookieName, sd)
	if err != nil {
		s.logger.Error("session: encode cookie", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionMaxAge),
	})
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

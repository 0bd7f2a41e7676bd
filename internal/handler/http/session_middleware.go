package http

import (
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/errs"
	"storefront/internal/logger"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	cookieName    = "storefront"
	cookieKeySID  = "sid"
	ctxKeySession = "storefront.session"
	ctxKeyLoadErr = "storefront.load_error"
)

// NewCookieStore signs the session cookie with key. The cookie only carries
// the session id; all state stays on the server.
func NewCookieStore(key string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionMiddleware attaches the caller's session, creating one for new or
// expired cookies, and loads the product list on first use.
func SessionMiddleware(store sessions.Store, manager *session.Manager, svc *service.StorefrontService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// A cookie that fails to decode yields a fresh, empty session.
		cs, err := store.Get(c.Request, cookieName)
		if err != nil {
			logger.Warn(ctx, "Discarding unreadable session cookie", slog.String("error", err.Error()))
		}

		id, _ := cs.Values[cookieKeySID].(string)
		sess, created := manager.GetOrCreate(id)
		if created {
			cs.Values[cookieKeySID] = sess.ID
			if err := cs.Save(c.Request, c.Writer); err != nil {
				logger.Error(ctx, "Failed to save session cookie", slog.String("error", err.Error()))
			}
			logger.Info(ctx, "Session started", slog.String("session", sess.ID))
		}

		c.Set(ctxKeySession, sess)
		if err := svc.Open(ctx, sess); err != nil {
			c.Set(ctxKeyLoadErr, err)
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(ctxKeySession).(*session.Session)
}

// loadNotice is the message of a product load that failed during this request.
func loadNotice(c *gin.Context) string {
	v, ok := c.Get(ctxKeyLoadErr)
	if !ok {
		return ""
	}
	return errs.Message(v.(error))
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	userIDKey    = "user_id"
	requestIDKey = "request_id"
)

// Identity parses an optional bearer token. Requests without one continue as
// guests; a malformed or expired token is rejected.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			unauthorized(c, "invalid token")
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "invalid claims")
			return
		}
		id, err := subject(claims)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// RequireUser rejects guests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// subject reads the user id from "sub", falling back to "user_id".
func subject(claims jwt.MapClaims) (int64, error) {
	for _, key := range []string{"sub", "user_id"} {
		switch v := claims[key].(type) {
		case string:
			if v == "" {
				continue
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				return 0, fmt.Errorf("invalid %s claim", key)
			}
			return id, nil
		case float64:
			if v <= 0 || v != float64(int64(v)) {
				return 0, fmt.Errorf("invalid %s claim", key)
			}
			return int64(v), nil
		}
	}
	return 0, errors.New("token has no subject")
}

func currentUser(c *gin.Context) *int64 {
	v, ok := c.Get(userIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}

// limiterIdleTTL is how long an unused client bucket is kept.
const limiterIdleTTL = 10 * time.Minute

// ClientLimiter keeps one token bucket per client key. Buckets idle for
// longer than idleTTL are evicted, at most once per idleTTL, so the map is
// bounded by the clients seen within two idle periods.
type ClientLimiter struct {
	limiters  map[string]*clientBucket
	mu        sync.RWMutex
	rps       float64
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		limiters:  make(map[string]*clientBucket),
		rps:       rps,
		burst:     burst,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ClientLimiter) get(key string) *rate.Limiter {
	now := l.now()
	l.mu.RLock()
	bucket, exists := l.limiters[key]
	due := now.Sub(l.lastSweep) >= l.idleTTL
	l.mu.RUnlock()
	if exists && !due {
		bucket.lastSeen.Store(now.UnixNano())
		return bucket.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.evictIdle(now)
	}
	if bucket, exists = l.limiters[key]; !exists {
		bucket = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.limiters[key] = bucket
	}
	bucket.lastSeen.Store(now.UnixNano())
	return bucket.limiter
}

// evictIdle must be called with mu held.
func (l *ClientLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-l.idleTTL).UnixNano()
	for key, bucket := range l.limiters {
		if bucket.lastSeen.Load() <= cutoff {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Middleware keys authenticated callers by user id and guests by client IP.
func (l *ClientLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := currentUser(c); id != nil {
			key = "user:" + strconv.FormatInt(*id, 10)
		}
		if !l.get(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if id := currentUser(c); id != nil {
			entry = entry.WithField("user_id", *id)
		}
		if last := c.Errors.Last(); last != nil {
			entry = entry.WithError(last.Err)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case len(c.Errors) > 0:
			entry.Info("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cors.New(cfg)
}

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit returns a per-client-IP token bucket limiter.
//
// Used on the OAuth routes, where each request costs us a round trip to an
// external provider and a burst of failed logins is the classic abuse
// pattern. r is the sustained requests-per-second, burst the bucket size.
//
// Limiters are kept per IP in a map and pruned lazily: entries idle for more
// than an hour are dropped on the next lookup sweep, so the map can't grow
// without bound.
func RateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	lookup := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if len(clients) > 1000 {
			for key, c := range clients {
				if now.Sub(c.lastSeen) > time.Hour {
					delete(clients, key)
				}
			}
		}

		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(r, burst)}
			clients[ip] = c
		}
		c.lastSeen = now
		return c.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				ip = req.RemoteAddr
			}

			if !lookup(ip).Allow() {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"rate_limited","message":"too many requests"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit caps requests per authenticated user using a fixed window
// counter in redis, keyed by user ID (falling back to remote address for
// unauthenticated requests). Redis being down fails open: a limiter outage
// must not take the API down with it.
func RateLimit(client *redis.Client, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := UserIDFrom(r.Context())
			if !ok {
				id = r.RemoteAddr
			}
			key := fmt.Sprintf("ratelimit:%s:%s", scope, id)

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				log.Printf("Rate limiter unavailable, allowing request: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(r.Context(), key, window).Err(); err != nil {
					log.Printf("Failed to set rate limit window for %s: %v", key, err)
				}
			}

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/toko-billing/internal/common"
)

// Handler applies a Limiter to every request. When the limiter itself fails
// (Redis down) the request is let through and OnError is told.
type Handler struct {
	Limiter Limiter
	Key     func(*http.Request) string
	OnError func(error)
	Now     func() time.Time
}

// ByStaffOrIP keys authenticated requests by staff user and the rest, such as
// login attempts, by client address.
func ByStaffOrIP(r *http.Request) string {
	if staff, ok := common.StaffUser(r.Context()); ok {
		return "staff:" + staff
	}
	return "ip:" + common.ClientIP(r)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil {
		return next
	}
	key := h.Key
	if key == nil {
		key = ByStaffOrIP
	}
	now := h.Now
	if now == nil {
		now = time.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := h.Limiter.Allow(r.Context(), key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(max(res.Limit, 0)))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
		if res.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		wait := int(math.Ceil(res.Reset.Sub(now()).Seconds()))
		wait = max(wait, 1)
		hdr.Set("Retry-After", strconv.Itoa(wait))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded",
			map[string]int{"retryAfterSeconds": wait})
	})
}

package common

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client generated key of a write request.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader marks a response served from the idempotency store.
const ReplayedHeader = "Idempotent-Replayed"

const pendingMarker = "pending"

// Idem guards writes carrying an Idempotency-Key. The first request claims
// the key; once it succeeds its response is stored for TTL and returned to
// any repeat, so a POS retrying after a timeout gets the bill it created. A
// repeat arriving while the first is still running gets 409. Failed requests
// release the key.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

// Key is scoped to the staff user, method and path.
func (i Idem) Key(r *http.Request, header string) string {
	staff, _ := StaffUser(r.Context())
	return "idem:" + Sha256Hex(staff+"\x00"+r.Method+"\x00"+r.URL.Path+"\x00"+header)
}

func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := i.Key(r, header)
		claimed, err := i.R.SetNX(ctx, key, pendingMarker, i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !claimed {
			i.replay(ctx, w, key)
			return
		}

		var body bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&body)
		next.ServeHTTP(ww, r)

		// the request context may be cancelled by now
		bg := context.WithoutCancel(ctx)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusBadRequest {
			_ = i.R.Del(bg, key).Err()
			return
		}
		raw, err := json.Marshal(storedResponse{Status: status, ContentType: ww.Header().Get("Content-Type"), Body: body.Bytes()})
		if err == nil {
			err = i.R.Set(bg, key, raw, i.TTL).Err()
		}
		if err != nil {
			// a repeat would be treated as in flight until the key expires
			_ = i.R.Del(bg, key).Err()
		}
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Bytes()
	var stored storedResponse
	if err != nil || string(raw) == pendingMarker || json.Unmarshal(raw, &stored) != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "a request with this Idempotency-Key is already in progress", nil)
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

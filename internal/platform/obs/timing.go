package obs

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// Observer receives the duration and outcome of every timed operation.
type Observer func(op string, d time.Duration, err error)

var observer atomic.Pointer[Observer]

// SetObserver installs o for all subsequent Time calls. nil removes it.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&o)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs how long an operation took. Use as
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		var err error
		if errp != nil {
			err = *errp
		}
		if o := observer.Load(); o != nil {
			(*o)(name, dur, err)
		}

		if err != nil {
			log.Printf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), err)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}

package api

// RetryPolicy controls how CallActivityWithRetry re-schedules a failed
// activity. MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// Retry is an orchestrator-level concern, not a dispatcher one: each retry
// is a fresh activity call with its own task id, so the whole sequence of
// attempts is recorded in history and replays deterministically. The engine
// has no durable timers, so there is no backoff delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
}

// CallActivityWithRetry calls the activity and, when it observes a recorded
// *ActivityError, schedules another attempt until the policy is exhausted.
// The last ActivityError is returned when all attempts failed. Suspension
// (ErrSuspended) propagates unchanged between attempts.
func CallActivityWithRetry(ctx *OrchestrationContext, policy RetryPolicy, name string, input any) (any, error) {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		out, err := ctx.CallActivity(name, input)
		if err == nil {
			return out, nil
		}
		if _, ok := IsActivityError(err); !ok {
			// ErrSuspended or a non-determinism failure; not retryable here.
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

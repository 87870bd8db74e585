// Package retry runs an operation in an explicit bounded loop.
//
// Each attempt returns a Result: Success, Failure (retryable) or Permanent.
// Run stops on success, on a permanent failure, when attempts are exhausted
// or when the context is cancelled, and returns an Outcome that records the
// last result and the number of attempts.
//
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.LinearBackoff{BaseDelay: time.Second},
//	}
//	out := retry.Run(ctx, cfg, func(ctx context.Context, attempt int) retry.Result[string] {
//		path, err := fetch(ctx)
//		if err != nil {
//			return retry.Failure[string](err)
//		}
//		return retry.Success(path)
//	})
//	if out.Exhausted {
//		// every attempt failed
//	}
package retry

package recorder

import (
	"context"
	"errors"
)

// ErrStopped reports that a continuous run ended by cancellation.
var ErrStopped = errors.New("recorder: stopped")

// FileDone is called after each finalized file.
type FileDone func(Result)

// RunContinuous records back-to-back files for s, re-arming before each so
// the filter history starts clean. count limits the number of files; 0
// runs until ctx is cancelled. It returns the finished files and the
// first fatal error, or ErrStopped after a cancelled file is finalized.
// An unbounded run keeps no results and reports files through done only.
func RunContinuous(ctx context.Context, r *Recorder, s Session, ts TimeSource, base string, count int, done FileDone) ([]Result, error) {
	var results []Result
	for i := 0; count == 0 || i < count; i++ {
		if ctx.Err() != nil {
			return results, ErrStopped
		}
		if err := r.Arm(s); err != nil {
			return results, err
		}
		res, err := r.Record(ctx, NextFileName(ts, base, s))
		if err != nil {
			return results, err
		}
		if count > 0 {
			results = append(results, res)
		}
		if done != nil {
			done(res)
		}
		if res.Stopped {
			return results, ErrStopped
		}
	}
	return results, nil
}

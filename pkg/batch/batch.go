// Package batch provides the partial-failure accumulation used by every bulk
// operation in the review pipeline: one item's failure is recorded and the
// rest of the batch keeps going. Output ordering matches input ordering.
package batch

import "fmt"

// Failure records one failed item with enough context for a reviewer to act on.
type Failure struct {
	Index int
	Label string
	Err   error
}

func (f Failure) Error() string {
	if f.Label != "" {
		return fmt.Sprintf("%s: %v", f.Label, f.Err)
	}
	return fmt.Sprintf("item %d: %v", f.Index, f.Err)
}

// Result accumulates successes and failures of one batch run.
type Result[R any] struct {
	Successes []R
	Failures  []Failure
}

// ErrorStrings flattens failures into response-friendly messages.
func (r Result[R]) ErrorStrings() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	return out
}

// Map runs fn over items sequentially, isolating each item's error (or panic)
// into the failure list instead of aborting the batch. label names the item
// in error messages; pass nil to fall back to the index.
func Map[T, R any](items []T, label func(T) string, fn func(T) (R, error)) Result[R] {
	res := Result[R]{}
	for i, item := range items {
		r, err := runOne(item, fn)
		if err != nil {
			lbl := ""
			if label != nil {
				lbl = label(item)
			}
			res.Failures = append(res.Failures, Failure{Index: i, Label: lbl, Err: err})
			continue
		}
		res.Successes = append(res.Successes, r)
	}
	return res
}

func runOne[T, R any](item T, fn func(T) (R, error)) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(item)
}

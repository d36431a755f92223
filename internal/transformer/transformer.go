// Package transformer implements the cleanse and join stage of a run:
// amount coercion, text normalisation, and the left join of sales to the
// client directory.
//
// Stages never log directly. Rows they discard are reported through a
// RejectFn so the caller decides how to count and surface them.
package transformer

// RejectFn is called once per row dropped or flagged by a stage. line is the
// 1-based input line of the row (0 when unknown).
type RejectFn func(line int, reason string)

func (fn RejectFn) call(line int, reason string) {
	if fn != nil {
		fn(line, reason)
	}
}

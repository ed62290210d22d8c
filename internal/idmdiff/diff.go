package idmdiff

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Explain renders a human-readable summary of the difference between
// desired and observed, suitable for an Updated condition's message or an
// Event. It is a thin wrapper around go-cmp so callers don't each need to
// think about cmp.Options.
func Explain(desired, observed any) string {
	diff := cmp.Diff(observed, desired)
	if diff == "" {
		return ""
	}
	return fmt.Sprintf("observed state differs from desired state:\n%s", diff)
}

package todos

import (
	"fmt"

	"github.com/pthm/hyper/lib/el"
)

// statsBadge renders the counters shown above the list. The total is also
// published as a signal so other elements can react to it.
func statsBadge(st Stats) *el.Element {
	return el.Div(
		el.Span(fmt.Sprintf("%d pending", st.Pending)).Class("pending"),
		el.Span(fmt.Sprintf("%d done", st.Completed)).Class("completed"),
		el.Span().Class("empty").Show("$total == 0").Text("Nothing to do"),
	).ID("stats").Signals(map[string]any{"total": st.Total})
}

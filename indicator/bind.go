package indicator

import (
	"go.jacobcolvin.com/hostprof/session"
)

// ResultsOpener displays the results of the session that was just stopped.
type ResultsOpener interface {
	OpenResults()
}

// Bind keeps ind visible exactly while ctrl is running. Clicking the
// visible indicator stops the session and opens the results through opener.
//
// The returned function detaches the state listener and hides the
// indicator, which also cancels its timer. It is idempotent.
func Bind(ctrl *session.Controller, ind *Indicator, opener ResultsOpener) func() {
	onClick := func() {
		ctrl.Stop()
		opener.OpenResults()
	}

	follow := func(s session.State) {
		if s == session.StateRunning {
			ind.Show(onClick)
			return
		}

		if ind.Visible() {
			ind.Hide()
		}
	}

	dispose := ctrl.OnStateChanged(follow)
	follow(ctrl.State())

	var done bool

	return func() {
		if done {
			return
		}

		done = true

		dispose()
		ind.Hide()
	}
}

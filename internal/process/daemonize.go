package process

import (
	"github.com/nginx-gists/unit/internal/daemon"
	"github.com/nginx-gists/unit/internal/events"
)

var detach = daemon.Detach

// Daemonize moves the process into the background. It reports
// parent=true in the original process, which should exit. The
// continuing child refreshes its cached identity before touching any
// pid-keyed state.
func (rt *Runtime) Daemonize() (parent bool, err error) {
	parent, err = detach(rt.logger)
	if err != nil || parent {
		return parent, err
	}

	rt.ctx.RefreshAfterFork()
	rt.publish(events.DaemonDetached, nil)
	return false, nil
}

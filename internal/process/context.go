// Package process implements the process-supervision core: the runtime
// table of known OS processes, the fork and exec spawn paths, and the
// bootstrap sequence a new process runs before serving its role.
package process

import (
	"os"
	"sync"
)

// Context caches the identity of the current OS process. Both the pid
// and any cached thread id go stale across fork; the child repairs them
// with RefreshAfterFork before touching shared tables.
type Context struct {
	mu   sync.Mutex
	pid  int
	ppid int
	tid  int
}

// NewContext captures the current process identity.
func NewContext() *Context {
	return &Context{
		pid:  os.Getpid(),
		ppid: os.Getppid(),
	}
}

// Pid returns the cached process id.
func (c *Context) Pid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// Ppid returns the cached parent process id.
func (c *Context) Ppid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ppid
}

// Tid returns the cached thread id, querying it on first use.
func (c *Context) Tid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tid == 0 {
		c.tid = gettid()
	}
	return c.tid
}

// RefreshAfterFork re-reads the process identity and drops the cached
// thread id. Called in the child immediately after fork and after
// daemonizing.
func (c *Context) RefreshAfterFork() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid = os.Getpid()
	c.ppid = os.Getppid()
	c.tid = 0
}

// setProcessTitle renders the process display name. Rewriting argv is
// platform specific and cosmetic, so the default is a no-op; a
// coordinating layer with a real implementation may replace it.
var setProcessTitle = func(title string) {}

// SetTitleHook installs a process-title renderer.
func SetTitleHook(fn func(string)) {
	if fn != nil {
		setProcessTitle = fn
	}
}

package contentrepo

import "sync"

// registry tracks in-flight uploads. Handles are keyed by the monotonically
// increasing id assigned at registration, so lookups survive callers holding
// stale pointers; listing preserves insertion order.
type registry struct {
	lk   sync.RWMutex
	cd   *sync.Cond
	seq  uint64
	live []*Upload
}

func newRegistry() *registry {
	res := &registry{}
	res.cd = sync.NewCond(res.lk.RLocker())
	return res
}

// add assigns the handle its id and appends it. This happens before any
// network or payload activity so the upload is visible and cancellable from
// the moment it exists.
func (g *registry) add(u *Upload) {
	g.lk.Lock()
	defer g.lk.Unlock()

	g.seq++
	u.id = g.seq
	g.live = append(g.live, u)
}

// drop removes the handle. Dropping an absent handle is a no-op, so the
// settlement paths cannot trip over each other.
func (g *registry) drop(u *Upload) {
	g.lk.Lock()
	defer g.lk.Unlock()

	for i, cur := range g.live {
		if cur.id == u.id {
			g.live = append(g.live[:i], g.live[i+1:]...)
			g.cd.Broadcast()
			return
		}
	}
}

// contains reports whether the handle is still in flight.
func (g *registry) contains(u *Upload) bool {
	g.lk.RLock()
	defer g.lk.RUnlock()

	for _, cur := range g.live {
		if cur.id == u.id {
			return true
		}
	}
	return false
}

// snapshot returns the live handles in insertion order.
func (g *registry) snapshot() []*Upload {
	g.lk.RLock()
	defer g.lk.RUnlock()

	out := make([]*Upload, len(g.live))
	copy(out, g.live)
	return out
}

// wait blocks until at most max uploads remain in flight.
func (g *registry) wait(max int) {
	g.lk.RLock()
	defer g.lk.RUnlock()

	for len(g.live) > max {
		g.cd.Wait()
	}
}

// CurrentUploads returns the uploads currently in flight, oldest first. The
// slice is a snapshot; the handles themselves are live and keep updating.
func (c *Client) CurrentUploads() []*Upload {
	return c.uploads.snapshot()
}

// CancelUpload aborts the upload behind the given handle and reports whether
// it was still in flight. Cancelling a settled upload returns false and does
// nothing else; the corresponding Wait will have already returned.
func (c *Client) CancelUpload(u *Upload) bool {
	if u == nil || !c.uploads.contains(u) {
		return false
	}
	u.abort(ErrAborted)
	return true
}

// WaitUploads blocks until at most max uploads remain in flight.
// WaitUploads(0) drains the client, which is useful before shutdown.
func (c *Client) WaitUploads(max int) {
	c.uploads.wait(max)
}

package pool

import "time"

func (p *Pool) reapLoop() {
	defer close(p.reaperDone)
	ticker := time.NewTicker(p.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Reap()
		case <-p.stopReaper:
			return
		}
	}
}

// Reap destroys idle connections that have been unused for longer than
// IdleTimeout and returns how many were destroyed.
func (p *Pool) Reap() int {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return 0
	}
	subs := make([]*subPool, 0, len(p.subs))
	for _, sp := range p.subs {
		subs = append(subs, sp)
	}
	p.mu.RUnlock()

	destroyed := 0
	for _, sp := range subs {
		for _, res := range sp.res.AcquireAllIdle() {
			if res.IdleDuration() > p.opts.IdleTimeout {
				res.Destroy()
				destroyed++
				continue
			}
			res.ReleaseUnused()
		}
	}
	if destroyed > 0 {
		p.log.Debug("reaped idle connections", "count", destroyed)
	}
	return destroyed
}

package socket

import "sync"

// handlerGroup tracks running connection handlers. While drain is waiting,
// join refuses new members, so Add never races the Wait.
type handlerGroup struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// join registers one handler. It reports false while a drain is in progress.
func (g *handlerGroup) join() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.draining {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *handlerGroup) leave() {
	g.wg.Done()
}

// drain blocks until every joined handler has left. The group accepts
// members again once it returns.
func (g *handlerGroup) drain() {
	g.mu.Lock()
	g.draining = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	g.draining = false
	g.mu.Unlock()
}

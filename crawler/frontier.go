package crawler

// Frontier is the breadth-first state of one run: pages fetched so far and
// the FIFO queue of same-domain URLs awaiting a fetch. A URL is queued at
// most once over the life of the frontier.
type Frontier struct {
	domain   string
	budget   int
	capacity int

	visited map[string]struct{}
	seen    map[string]struct{}
	queue   []string
	dropped int
}

// NewFrontier creates a frontier for domain. capacity bounds the queue
// length; values below budget are raised to budget.
func NewFrontier(domain string, budget, capacity int) *Frontier {
	if capacity < budget {
		capacity = budget
	}
	return &Frontier{
		domain:   domain,
		budget:   budget,
		capacity: capacity,
		visited:  make(map[string]struct{}),
		seen:     make(map[string]struct{}),
	}
}

func (f *Frontier) Domain() string { return f.domain }

// MarkSeen records url as known without queueing it.
func (f *Frontier) MarkSeen(url string) {
	f.seen[url] = struct{}{}
}

// MarkVisited records a successfully fetched page. It reports false when the
// page was already visited or the budget is exhausted.
func (f *Frontier) MarkVisited(url string) bool {
	if _, ok := f.visited[url]; ok {
		return false
	}
	if len(f.visited) >= f.budget {
		return false
	}
	f.visited[url] = struct{}{}
	f.seen[url] = struct{}{}
	return true
}

func (f *Frontier) Visited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

func (f *Frontier) VisitedCount() int { return len(f.visited) }

// Offer enqueues url unless it was already seen or the queue is full.
func (f *Frontier) Offer(url string) bool {
	if _, ok := f.seen[url]; ok {
		return false
	}
	if len(f.queue) >= f.capacity {
		f.dropped++
		return false
	}
	f.seen[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Next dequeues the earliest discovered URL.
func (f *Frontier) Next() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return url, true
}

func (f *Frontier) Len() int { return len(f.queue) }

// Dropped counts links refused because the queue was full.
func (f *Frontier) Dropped() int { return f.dropped }

// Queued returns a copy of the pending URLs in dequeue order.
func (f *Frontier) Queued() []string {
	out := make([]string, len(f.queue))
	copy(out, f.queue)
	return out
}

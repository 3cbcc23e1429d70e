package session

import (
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	defaultPollInterval = 10 * time.Second
	probeTimeout        = 3 * time.Second
)

// HealthPoller probes the evaluation service's /health endpoint on a fixed
// interval and immediately on start. Probes are fire-and-forget: a slow one
// never delays the next tick, and the latest outcome wins.
type HealthPoller struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu        sync.Mutex
	available bool
	stop      chan struct{}
	running   bool
}

// NewHealthPoller probes baseURL's /health endpoint. interval zero means
// the default 10 seconds.
func NewHealthPoller(baseURL string, interval time.Duration) *HealthPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &HealthPoller{
		url:      baseURL + "/health",
		interval: interval,
		client:   &http.Client{Timeout: probeTimeout},
	}
}

// Available reports whether the evaluation service answered its last probe.
func (p *HealthPoller) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// SetAvailable records an availability observation. The coordinator also
// calls this with the outcome of its own evaluation dispatches.
func (p *HealthPoller) SetAvailable(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = ok
}

// Start begins polling. A second Start without a Stop is a no-op.
func (p *HealthPoller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	go p.probe()
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go p.probe()
			case <-stop:
				return
			}
		}
	}()
}

// Stop cancels future probes. In-flight probes finish on their own; they
// only write a boolean.
func (p *HealthPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stop)
}

func (p *HealthPoller) probe() {
	resp, err := p.client.Get(p.url)
	if err != nil {
		log.Printf("Health probe failed: %v", err)
		p.SetAvailable(false)
		return
	}
	defer resp.Body.Close()
	p.SetAvailable(resp.StatusCode >= 200 && resp.StatusCode < 300)
}

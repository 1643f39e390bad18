package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

const rateEntryTTL = 10 * time.Minute

// Limits caps concurrent sessions per instance and per remote IP, and the
// rate at which one IP may open new ones. A zero cap disables that check.
type Limits struct {
	maxTotal int64
	maxPerIP int
	total    atomic.Int64

	mu        sync.Mutex
	perIP     map[string]int
	rates     map[string]*rateEntry
	rate      rate.Limit
	burst     int
	nextSweep time.Time
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLimits(maxTotal int64, maxPerIP int, connectionsPerSecond float64, burst int) *Limits {
	return &Limits{
		maxTotal:  maxTotal,
		maxPerIP:  maxPerIP,
		perIP:     make(map[string]int),
		rates:     make(map[string]*rateEntry),
		rate:      rate.Limit(connectionsPerSecond),
		burst:     burst,
		nextSweep: time.Now().Add(rateEntryTTL),
	}
}

// Acquire reserves a slot for ip. On success the caller must Release it.
func (l *Limits) Acquire(ip string) (bool, LimitReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.allowRate(ip) {
		return false, LimitReasonRate
	}

	if l.maxTotal > 0 && l.total.Load() >= l.maxTotal {
		return false, LimitReasonGlobal
	}
	if l.maxPerIP > 0 && l.perIP[ip] >= l.maxPerIP {
		return false, LimitReasonPerIP
	}

	l.total.Add(1)
	l.perIP[ip]++
	return true, ""
}

func (l *Limits) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.perIP, ip)
	} else {
		l.perIP[ip] = n - 1
	}
	l.total.Add(-1)
}

func (l *Limits) Current() int64 {
	return l.total.Load()
}

// must be called with mu held
func (l *Limits) allowRate(ip string) bool {
	if l.rate <= 0 {
		return true
	}

	now := time.Now()
	if now.After(l.nextSweep) {
		for key, e := range l.rates {
			if now.Sub(e.lastSeen) > rateEntryTTL {
				delete(l.rates, key)
			}
		}
		l.nextSweep = now.Add(rateEntryTTL)
	}

	e, ok := l.rates[ip]
	if !ok {
		e = &rateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.rates[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

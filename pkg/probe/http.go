/*
Copyright 2024 The Spotalis Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package probe

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/paia-tech/hsw-controller/pkg/apis"
	"github.com/paia-tech/hsw-controller/pkg/utils"
)

// HTTPProberConfig mirrors the fields of the HTTPProbeSpec the reconciler
// admits; kept separate from the API type so this package has no import
// dependency on api/v1alpha1.
type HTTPProberConfig struct {
	Port           int32
	Path           string
	SuccessIsBusy  bool
	Timeout        time.Duration
	Period         time.Duration
	MaxConcurrency int
}

type podTarget struct {
	Namespace string
	Name      string
	IP        string
	Ready     bool
}

// HTTPProber polls each selected pod's HTTP endpoint on a jittered
// schedule and derives busy/idle from the response, preserving the prior
// classification across a probe failure per the package's failure
// semantics.
type HTTPProber struct {
	cfg    HTTPProberConfig
	table  *table
	client *http.Client

	mu      sync.RWMutex
	targets map[types.UID]podTarget

	backoff *utils.RateLimiter
	gate    chan struct{}

	pollMu   sync.RWMutex
	lastPoll time.Time

	closeOnce sync.Once
	stopCh    chan struct{}
}

// NewHTTPProber creates an HTTP prober and starts its background polling
// loop. Callers must call Close when the owning HSW is deleted or its
// busyProbe configuration changes.
func NewHTTPProber(cfg HTTPProberConfig) *HTTPProber {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Period <= 0 {
		cfg.Period = 10 * time.Second
	}

	rlConfig := utils.DefaultRateLimiterConfig()
	rlConfig.EnableCircuitBreaker = true
	rlConfig.FailureThreshold = 5
	rlConfig.RecoveryTimeout = 30 * time.Second

	p := &HTTPProber{
		cfg:     cfg,
		table:   newTable(),
		client:  &http.Client{Timeout: cfg.Timeout},
		targets: make(map[types.UID]podTarget),
		backoff: utils.NewRateLimiter(rlConfig),
		gate:    make(chan struct{}, cfg.MaxConcurrency),
		stopCh:  make(chan struct{}),
	}
	go p.run()
	return p
}

// Sync records pod's current IP and readiness so the next poll cycle can
// reach it. A pod that has gone unready or lost its IP is kept in the
// target set (with Ready=false) rather than dropped, so a transient
// readiness flap does not itself count as a probe failure.
func (p *HTTPProber) Sync(pod *corev1.Pod) {
	if pod.DeletionTimestamp != nil {
		p.Delete(pod.UID)
		return
	}

	ready := podReady(pod)
	p.mu.Lock()
	p.targets[pod.UID] = podTarget{
		Namespace: pod.Namespace,
		Name:      pod.Name,
		IP:        pod.Status.PodIP,
		Ready:     ready,
	}
	p.mu.Unlock()
}

// Delete removes pod from both the poll target set and the busy table.
func (p *HTTPProber) Delete(podUID types.UID) {
	p.mu.Lock()
	delete(p.targets, podUID)
	p.mu.Unlock()
	p.table.delete(podUID)
}

// Snapshot returns the pruned busy table; AsOf reflects the last completed
// poll cycle, which the reconciler compares against 2*periodSeconds to
// decide whether the table is too stale to trust without an early requeue.
func (p *HTTPProber) Snapshot(_ context.Context, _ types.NamespacedName, pods []*corev1.Pod) Snapshot {
	return p.table.snapshotAndGC(livePodSet(pods), p.lastPollTime())
}

// Close stops the polling loop. Safe to call more than once.
func (p *HTTPProber) Close() {
	p.closeOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *HTTPProber) run() {
	for {
		select {
		case <-p.stopCh:
			return
		case <-time.After(jitter(p.cfg.Period)):
			p.pollOnce()
		}
	}
}

func (p *HTTPProber) pollOnce() {
	p.mu.RLock()
	targets := make(map[types.UID]podTarget, len(p.targets))
	for uid, t := range p.targets {
		targets[uid] = t
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for uid, target := range targets {
		if target.IP == "" || !target.Ready {
			continue
		}
		if !p.backoff.AllowForResource(string(uid)) {
			continue
		}

		wg.Add(1)
		p.gate <- struct{}{}
		go func(uid types.UID, target podTarget) {
			defer wg.Done()
			defer func() { <-p.gate }()
			p.probeOne(uid, target)
		}(uid, target)
	}
	wg.Wait()

	p.setLastPollTime(time.Now())
}

func (p *HTTPProber) probeOne(uid types.UID, target podTarget) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d%s", target.IP, p.cfg.Port, p.cfg.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.recordFailure(uid, err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.recordFailure(uid, err)
		return
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	busy := success == p.cfg.SuccessIsBusy

	p.backoff.RecordSuccess(string(uid))
	p.table.upsert(uid, apis.PodBusyState{
		Busy:         busy,
		LastObserved: time.Now(),
	})
}

// recordFailure preserves the previous busy value, per the package's
// failure semantics: a pod with no prior entry defaults to idle.
func (p *HTTPProber) recordFailure(uid types.UID, cause error) {
	p.backoff.RecordFailure(string(uid), cause)

	prior, ok := p.table.get(uid)
	busy := false
	if ok {
		busy = prior.Busy
	}
	p.table.upsert(uid, apis.PodBusyState{
		Busy:           busy,
		LastObserved:   time.Now(),
		LastProbeError: (&apis.ProbeFailureError{PodName: string(uid), Cause: cause}).Error(),
	})
}

func (p *HTTPProber) lastPollTime() time.Time {
	p.pollMu.RLock()
	defer p.pollMu.RUnlock()
	return p.lastPoll
}

func (p *HTTPProber) setLastPollTime(t time.Time) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()
	p.lastPoll = t
}

func podReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status != corev1.ConditionFalse
		}
	}
	return true
}

// jitter returns d reduced by a random amount up to 10%, spreading
// concurrent pollers across HSWs instead of firing in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	maxJitter := float64(d) * 0.10
	return d - time.Duration(rand.Float64()*maxJitter)
}

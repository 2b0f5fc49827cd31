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

package controllers

import (
	"fmt"
	"sync"

	corev1 "k8s.io/api/core/v1"
	"golang.org/x/time/rate"
	"k8s.io/client-go/tools/record"
)

// Event reasons emitted against a HotStandbyDeployment.
const (
	EventReconciled        = "Reconciled"
	EventChildCreated      = "ChildCreated"
	EventChildScaled       = "ChildScaled"
	EventTemplateUpdated   = "TemplateUpdated"
	EventInvalidSpec       = "InvalidSpec"
	EventOwnershipConflict = "OwnershipConflict"
	EventProbeErrors       = "ProbeErrors"
)

// eventRateLimit is the "at most one per kind per 60s per HSW" budget: one
// token per 60 seconds, with a burst of one so the first occurrence of a
// reason always fires immediately.
const eventRateLimit = rate.Limit(1.0 / 60.0)

// EventRecorder wraps a controller-runtime event recorder with a per-
// (object, reason) rate limit, so a flapping condition cannot spam the HSW's
// event stream.
type EventRecorder struct {
	recorder record.EventRecorder

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewEventRecorder wraps recorder, which is typically obtained from a
// manager via EventRecorderFor.
func NewEventRecorder(recorder record.EventRecorder) *EventRecorder {
	return &EventRecorder{
		recorder: recorder,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Normal records an informational event against obj if the (obj, reason)
// pair is not currently rate-limited.
func (r *EventRecorder) Normal(obj *corev1.ObjectReference, reason, messageFmt string, args ...interface{}) {
	r.record(obj, corev1.EventTypeNormal, reason, messageFmt, args...)
}

// Warning records a warning event against obj if the (obj, reason) pair is
// not currently rate-limited.
func (r *EventRecorder) Warning(obj *corev1.ObjectReference, reason, messageFmt string, args ...interface{}) {
	r.record(obj, corev1.EventTypeWarning, reason, messageFmt, args...)
}

func (r *EventRecorder) record(obj *corev1.ObjectReference, eventType, reason, messageFmt string, args ...interface{}) {
	if !r.allow(obj, reason) {
		return
	}
	r.recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

func (r *EventRecorder) allow(obj *corev1.ObjectReference, reason string) bool {
	key := fmt.Sprintf("%s/%s/%s/%s", obj.Namespace, obj.Name, obj.UID, reason)

	r.mu.Lock()
	limiter, ok := r.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(eventRateLimit, 1)
		r.limiters[key] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}

// Forget drops the rate-limit state for obj, called when the HSW is
// deleted so its key does not linger in the limiter map forever.
func (r *EventRecorder) Forget(obj *corev1.ObjectReference) {
	prefix := fmt.Sprintf("%s/%s/%s/", obj.Namespace, obj.Name, obj.UID)

	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.limiters {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(r.limiters, key)
		}
	}
}

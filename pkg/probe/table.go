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

// Package probe implements the two interchangeable busy-signal strategies a
// HotStandbyDeployment can use to classify its selected pods: a pure
// annotation snapshot and a periodic HTTP poll. Both share the same table
// shape and the same read contract, so the reconciler never knows which one
// it is talking to.
package probe

import (
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/paia-tech/hsw-controller/pkg/apis"
)

// PodIdentity names a pod by namespace, name and UID; the busy table itself
// is keyed by UID alone. Name is kept alongside
// UID so garbage collection can match against a current pod list without a
// second lookup.
type PodIdentity struct {
	Namespace string
	Name      string
	UID       types.UID
}

// Snapshot is the read-only view the probe engine hands to the reconciler.
// AsOf is the freshness timestamp the reconciler uses to decide whether to
// schedule an early requeue instead of trusting a stale table.
type Snapshot struct {
	States map[types.UID]apis.PodBusyState
	AsOf   time.Time
}

// BusyCount returns the number of entries in the snapshot classified busy.
// Pods with no entry at all are not counted here; callers apply the
// optimistic-idle default for pods missing from States.
func (s Snapshot) BusyCount() int32 {
	var n int32
	for _, state := range s.States {
		if state.Busy {
			n++
		}
	}
	return n
}

// table is the mutable busy table shared by both prober implementations.
// Its methods take mu themselves; snapshotAndGC takes its copy while holding
// the write lock so callers never observe a table under mutation.
type table struct {
	mu      sync.RWMutex
	entries map[types.UID]apis.PodBusyState
}

func newTable() *table {
	return &table{entries: make(map[types.UID]apis.PodBusyState)}
}

func (t *table) upsert(uid types.UID, state apis.PodBusyState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[uid] = state
}

func (t *table) get(uid types.UID) (apis.PodBusyState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.entries[uid]
	return state, ok
}

func (t *table) delete(uid types.UID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, uid)
}

// snapshotAndGC copies the table, pruning any entry whose UID is not present
// in live (the currently selected, non-terminal pod set), then returns the
// copy. Pruning happens under the same write lock as the copy so a
// concurrent Sync can never resurrect an entry snapshotAndGC just dropped.
func (t *table) snapshotAndGC(live map[types.UID]struct{}, asOf time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	for uid := range t.entries {
		if _, ok := live[uid]; !ok {
			delete(t.entries, uid)
		}
	}

	copied := make(map[types.UID]apis.PodBusyState, len(t.entries))
	for uid, state := range t.entries {
		copied[uid] = state
	}
	return Snapshot{States: copied, AsOf: asOf}
}

// isSelectable reports whether pod participates in busy/idle counting at
// all: non-terminal phase and no deletion timestamp set.
func isSelectable(pod *corev1.Pod) bool {
	if pod.DeletionTimestamp != nil {
		return false
	}
	switch pod.Status.Phase {
	case corev1.PodSucceeded, corev1.PodFailed:
		return false
	default:
		return true
	}
}

// livePodSet builds the UID set snapshotAndGC prunes against.
func livePodSet(pods []*corev1.Pod) map[types.UID]struct{} {
	live := make(map[types.UID]struct{}, len(pods))
	for _, pod := range pods {
		if isSelectable(pod) {
			live[pod.UID] = struct{}{}
		}
	}
	return live
}

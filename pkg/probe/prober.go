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

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
)

// BusyProber maintains a busy/idle classification for the pods selected by
// one HotStandbyDeployment and hands the reconciler a point-in-time
// snapshot of it. Implementations never return an error to the reconciler;
// a prober that cannot classify a pod reports it optimistically idle
// (annotation mode) or carries its last-known value (http mode) instead.
type BusyProber interface {
	// Snapshot returns the current busy table for hswKey, pruned against
	// pods, the set of pods currently selected by that HSW.
	Snapshot(ctx context.Context, hswKey types.NamespacedName, pods []*corev1.Pod) Snapshot

	// Sync informs the prober that pod was added or updated. Annotation
	// mode uses this as its only source of truth; http mode uses it to
	// learn a pod's IP and readiness without waiting for the next poll.
	Sync(pod *corev1.Pod)

	// Delete removes any busy-table entry for podUID immediately, ahead of
	// the next Snapshot's garbage collection pass.
	Delete(podUID types.UID)

	// Close stops any background scheduler the prober owns. Safe to call
	// more than once.
	Close()
}

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
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/paia-tech/hsw-controller/internal/annotations"
	"github.com/paia-tech/hsw-controller/pkg/apis"
)

// AnnotationProber classifies pods purely from the pod watcher's event
// stream: busy iff the configured annotation key is present with the exact
// value "true". There is no background scheduler; Sync/Delete are the only
// writers, called directly from the pod informer's event handlers, so
// classification is free and as fresh as the informer cache.
type AnnotationProber struct {
	table         *table
	annotationKey string
	parser        *annotations.AnnotationParser
}

// NewAnnotationProber creates a prober that treats annotationKey as the
// busy signal. An empty key resolves to the package default.
func NewAnnotationProber(annotationKey string) *AnnotationProber {
	return &AnnotationProber{
		table:         newTable(),
		annotationKey: annotations.ResolveAnnotationKey(annotationKey),
		parser:        annotations.NewAnnotationParser(),
	}
}

// Sync upserts pod's busy classification from its current annotations.
func (p *AnnotationProber) Sync(pod *corev1.Pod) {
	if pod.DeletionTimestamp != nil {
		p.table.delete(pod.UID)
		return
	}
	busy := p.parser.IsBusy(pod, p.annotationKey)
	p.table.upsert(pod.UID, apis.PodBusyState{
		Busy:         busy,
		LastObserved: time.Now(),
	})
}

// Delete removes pod's busy-table entry.
func (p *AnnotationProber) Delete(podUID types.UID) {
	p.table.delete(podUID)
}

// Snapshot returns the pruned busy table. Because annotation mode is
// event-driven, AsOf is always "now": the table is never older than the
// freshest event the informer has delivered, and any pod not yet synced is
// absent from States rather than stale within it.
func (p *AnnotationProber) Snapshot(_ context.Context, _ types.NamespacedName, pods []*corev1.Pod) Snapshot {
	return p.table.snapshotAndGC(livePodSet(pods), time.Now())
}

// Close is a no-op: annotation mode owns no background goroutine.
func (p *AnnotationProber) Close() {}

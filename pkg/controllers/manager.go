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
	"context"
	"sync"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// SelectorIndex is the in-memory map from a HotStandbyDeployment's key to
// its pod selector, kept current by the reconciler on every successful
// reconcile (listSelectedPods) and dropped when the HSW is deleted. The pod
// watch consults it on every pod event to decide which HSWs to notify,
// instead of re-listing HSWs from the API server per pod.
type SelectorIndex struct {
	mu      sync.RWMutex
	entries map[types.NamespacedName]labels.Selector
}

// NewSelectorIndex returns an empty SelectorIndex.
func NewSelectorIndex() *SelectorIndex {
	return &SelectorIndex{entries: make(map[types.NamespacedName]labels.Selector)}
}

// Set records or replaces the selector for key.
func (idx *SelectorIndex) Set(key types.NamespacedName, selector labels.Selector) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[key] = selector
}

// Delete drops key from the index.
func (idx *SelectorIndex) Delete(key types.NamespacedName) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, key)
}

// MatchingHSWs returns every indexed HSW key in namespace ns whose selector
// matches set. Order is unspecified.
func (idx *SelectorIndex) MatchingHSWs(ns string, set labels.Labels) []types.NamespacedName {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []types.NamespacedName
	for key, selector := range idx.entries {
		if key.Namespace != ns {
			continue
		}
		if selector.Matches(set) {
			matches = append(matches, key)
		}
	}
	return matches
}

// podSyncer is the subset of HotStandbyDeploymentReconciler the pod event
// handler needs, kept as an interface so it can be exercised with a fake in
// tests without constructing a full reconciler.
type podSyncer interface {
	SyncPod(ownerKey types.NamespacedName, pod *corev1.Pod)
	DeletePod(ownerKey types.NamespacedName, podUID types.UID)
}

// podEventHandler maps pod watch events to reconcile requests for every HSW
// whose selector currently matches the pod, and forwards the raw event to
// the matching HSWs' busy probers. Tombstone unwrapping for delete events is
// handled upstream by controller-runtime's source.Kind before this handler
// ever sees the event, per the informer's ResourceEventHandler contract.
type podEventHandler struct {
	index *SelectorIndex
	sync  podSyncer
}

func newPodEventHandler(index *SelectorIndex, sync podSyncer) handler.EventHandler {
	return &podEventHandler{index: index, sync: sync}
}

var _ handler.EventHandler = &podEventHandler{}

func (h *podEventHandler) Create(_ context.Context, e event.CreateEvent, q workqueue.RateLimitingInterface) {
	h.enqueueAndSync(e.Object, q)
}

func (h *podEventHandler) Update(_ context.Context, e event.UpdateEvent, q workqueue.RateLimitingInterface) {
	h.enqueueAndSync(e.ObjectNew, q)
}

func (h *podEventHandler) Delete(_ context.Context, e event.DeleteEvent, q workqueue.RateLimitingInterface) {
	pod, ok := e.Object.(*corev1.Pod)
	if !ok {
		return
	}
	for _, key := range h.index.MatchingHSWs(pod.Namespace, labels.Set(pod.Labels)) {
		h.sync.DeletePod(key, pod.UID)
		q.Add(reconcile.Request{NamespacedName: key})
	}
}

func (h *podEventHandler) Generic(_ context.Context, e event.GenericEvent, q workqueue.RateLimitingInterface) {
	h.enqueueAndSync(e.Object, q)
}

func (h *podEventHandler) enqueueAndSync(obj client.Object, q workqueue.RateLimitingInterface) {
	pod, ok := obj.(*corev1.Pod)
	if !ok {
		return
	}
	matches := h.index.MatchingHSWs(pod.Namespace, labels.Set(pod.Labels))
	if len(matches) > 1 {
		log.Log.Info("pod matches selectors of multiple HotStandbyDeployments",
			"namespace", pod.Namespace, "pod", pod.Name, "matches", matches)
	}
	for _, key := range matches {
		h.sync.SyncPod(key, pod)
		q.Add(reconcile.Request{NamespacedName: key})
	}
}

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
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	hswv1alpha1 "github.com/paia-tech/hsw-controller/api/v1alpha1"
	"github.com/paia-tech/hsw-controller/pkg/apis"
	"github.com/paia-tech/hsw-controller/pkg/metrics"
	"github.com/paia-tech/hsw-controller/pkg/probe"
)

// childWorkloadSuffix names the Deployment this controller creates to run a
// HotStandbyDeployment's pods.
const childWorkloadSuffix = "-workload"

// snapshotStalenessSnapshot bounds how old an annotation-mode busy snapshot
// can be before the reconciler schedules an early requeue instead of
// trusting it; for HTTP mode nextRequeue uses twice the probe period.
const (
	snapshotStalenessSnapshot = 30 * time.Second
)

// ControllerError records a reconcile failure for introspection, mirroring
// the shape callers can poll with GetLastError.
type ControllerError struct {
	Error     error
	Timestamp time.Time
	Request   types.NamespacedName
}

// HotStandbyDeploymentReconciler drives a HotStandbyDeployment's child
// workload replica count and busy/idle status from the busy-probe snapshot
// of its selected pods.
type HotStandbyDeploymentReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	NamespaceScope *NamespaceScope
	Events         *EventRecorder
	SelectorIndex  *SelectorIndex
	Metrics        *metrics.Collector

	// ReconcileTimeout bounds a single Reconcile call.
	ReconcileTimeout time.Duration
	// DefaultRequeueInterval is step 8's bounded periodic resync.
	DefaultRequeueInterval time.Duration
	// ProbeConcurrency is passed through to any HTTPProber this reconciler
	// creates.
	ProbeConcurrency int

	proberMu sync.Mutex
	probers  map[types.NamespacedName]*proberEntry

	// cooldownSince tracks, per HSW key, when desired first dropped to or
	// below the child's current replica count, for ScaleDownCooldownSeconds.
	cooldownSince sync.Map // map[string]time.Time

	reconcileCount atomic.Int64
	errorCount     atomic.Int64

	lastErrorMu sync.RWMutex
	lastError   *ControllerError
}

// proberEntry is the cached BusyProber for one HSW plus the configuration it
// was built from, so a change to busyProbe can be detected without
// re-reading the whole spec.
type proberEntry struct {
	prober        probe.BusyProber
	mode          hswv1alpha1.BusyProbeMode
	annotationKey string
	http          probe.HTTPProberConfig
}

// NewHotStandbyDeploymentReconciler creates a reconciler with the package's
// default timings.
func NewHotStandbyDeploymentReconciler(c client.Client, scheme *runtime.Scheme) *HotStandbyDeploymentReconciler {
	return &HotStandbyDeploymentReconciler{
		Client:                 c,
		Scheme:                 scheme,
		ReconcileTimeout:       30 * time.Second,
		DefaultRequeueInterval: 30 * time.Second,
		ProbeConcurrency:       16,
		probers:                make(map[types.NamespacedName]*proberEntry),
		SelectorIndex:          NewSelectorIndex(),
	}
}

//+kubebuilder:rbac:groups=apps.paia.tech,resources=hotstandbydeployments,verbs=get;list;watch
//+kubebuilder:rbac:groups=apps.paia.tech,resources=hotstandbydeployments/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;patch
//+kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch
//+kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;create;update

// Reconcile implements step 1-8 of the busy-driven replica convergence loop.
func (r *HotStandbyDeploymentReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	r.reconcileCount.Add(1)

	ctx, cancel := context.WithTimeout(ctx, r.reconcileTimeout())
	defer cancel()

	logger := NewControllerLogger(ctx, "hsw-controller", req, "HotStandbyDeployment")

	// Step 1: load HSW.
	var hsw hswv1alpha1.HotStandbyDeployment
	if err := r.Get(ctx, req.NamespacedName, &hsw); err != nil {
		if k8serrors.IsNotFound(err) {
			r.forgetHSW(req.NamespacedName)
			return ctrl.Result{}, nil
		}
		r.recordError(req.NamespacedName, err)
		logger.ReconcileFailed(err, "failed to get HotStandbyDeployment")
		return ctrl.Result{}, err
	}

	if err := validateSpec(&hsw); err != nil {
		logger.ReconcileFailed(err, "invalid spec")
		r.emitInvalidSpec(&hsw, err)
		if statusErr := r.writeStatus(ctx, &hsw, hsw.Status.BusyCount, hsw.Status.IdleCount, hsw.Status.DesiredReplicas); statusErr != nil {
			logger.Error(statusErr, "failed to write status for invalid spec")
		}
		return ctrl.Result{RequeueAfter: r.reconcileTimeout() * 4}, nil
	}

	// Step 2: resolve child name.
	childName := r.resolveChildName(&hsw)

	// Step 3: list selected pods.
	pods, err := r.listSelectedPods(ctx, &hsw)
	if err != nil {
		r.recordError(req.NamespacedName, err)
		logger.ReconcileFailed(err, "failed to list selected pods")
		return ctrl.Result{RequeueAfter: r.DefaultRequeueInterval}, err
	}

	// Step 4: count busy.
	snap, busyCount := r.countBusy(ctx, &hsw, pods)

	selected := int32(len(pods))
	idleCount := selected - busyCount
	if idleCount < 0 {
		idleCount = 0
	}

	// Step 5: compute desired.
	desired := computeDesired(&hsw, busyCount)

	// Step 6: reconcile child workload.
	childResult, err := r.reconcileChild(ctx, &hsw, childName, desired)
	if err != nil {
		var conflict *apis.OwnershipConflictError
		if isOwnershipConflict(err, &conflict) {
			r.recordError(req.NamespacedName, err)
			logger.ReconcileFailed(err, "ownership conflict on child workload")
			r.emitOwnershipConflict(&hsw, conflict)
			if statusErr := r.writeStatus(ctx, &hsw, busyCount, idleCount, desired); statusErr != nil {
				logger.Error(statusErr, "failed to write status after ownership conflict")
			}
			return ctrl.Result{RequeueAfter: r.DefaultRequeueInterval * 4}, nil
		}
		r.recordError(req.NamespacedName, err)
		logger.ReconcileFailed(err, "failed to reconcile child workload")
		return ctrl.Result{RequeueAfter: r.DefaultRequeueInterval}, err
	}

	// Step 7: write status.
	if err := r.writeStatus(ctx, &hsw, busyCount, idleCount, desired); err != nil {
		r.recordError(req.NamespacedName, err)
		logger.ReconcileFailed(err, "failed to write status")
		return ctrl.Result{RequeueAfter: r.DefaultRequeueInterval}, err
	}

	r.emitChildResult(&hsw, childResult)
	r.Events.Normal(hswObjectReference(&hsw), EventReconciled, "busy=%d idle=%d desired=%d", busyCount, idleCount, desired)
	r.recordMetrics(&hsw, busyCount, idleCount, desired, nil)

	// Step 8: requeue.
	return ctrl.Result{RequeueAfter: r.nextRequeue(&hsw, snap)}, nil
}

// recordMetrics reports the reconcile outcome to the configured collector,
// a no-op when Metrics is unset (e.g. in unit tests).
func (r *HotStandbyDeploymentReconciler) recordMetrics(hsw *hswv1alpha1.HotStandbyDeployment, busy, idle, desired int32, err error) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.RecordReplicaState(hsw.Namespace, hsw.Name, busy, idle, desired)
	r.Metrics.RecordReconciliation(hsw.Namespace, hsw.Name, err)
}

// resolveChildName implements step 2.
func (r *HotStandbyDeploymentReconciler) resolveChildName(hsw *hswv1alpha1.HotStandbyDeployment) string {
	return hsw.Name + childWorkloadSuffix
}

// listSelectedPods implements step 3: pods in the HSW's namespace matching
// its selector, with terminal and deletion-marked pods dropped.
func (r *HotStandbyDeploymentReconciler) listSelectedPods(ctx context.Context, hsw *hswv1alpha1.HotStandbyDeployment) ([]*corev1.Pod, error) {
	selector, err := metav1.LabelSelectorAsSelector(&hsw.Spec.Selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector: %w", err)
	}

	if r.SelectorIndex != nil {
		r.SelectorIndex.Set(types.NamespacedName{Namespace: hsw.Namespace, Name: hsw.Name}, selector)
	}

	var podList corev1.PodList
	if err := r.List(ctx, &podList, client.InNamespace(hsw.Namespace), client.MatchingLabelsSelector{Selector: selector}); err != nil {
		return nil, fmt.Errorf("listing pods: %w", err)
	}

	selected := make([]*corev1.Pod, 0, len(podList.Items))
	for i := range podList.Items {
		pod := &podList.Items[i]
		if pod.DeletionTimestamp != nil {
			continue
		}
		switch pod.Status.Phase {
		case corev1.PodSucceeded, corev1.PodFailed:
			continue
		}
		selected = append(selected, pod)
	}
	return selected, nil
}

// countBusy implements step 4, consulting the HSW's busy prober.
func (r *HotStandbyDeploymentReconciler) countBusy(ctx context.Context, hsw *hswv1alpha1.HotStandbyDeployment, pods []*corev1.Pod) (probe.Snapshot, int32) {
	key := types.NamespacedName{Namespace: hsw.Namespace, Name: hsw.Name}
	entry := r.proberFor(key, hsw)

	snap := entry.prober.Snapshot(ctx, key, pods)

	var busy int32
	var probeErrors int32
	for _, pod := range pods {
		state, ok := snap.States[pod.UID]
		if !ok {
			continue
		}
		if state.Busy {
			busy++
		}
		if state.LastProbeError != "" {
			probeErrors++
		}
	}
	if probeErrors > 0 {
		if r.Metrics != nil {
			r.Metrics.RecordProbeError(hsw.Namespace, hsw.Name, string(entry.mode))
		}
		r.Events.Warning(hswObjectReference(hsw), EventProbeErrors, "%d of %d selected pods failed their busy probe", probeErrors, len(pods))
	}
	return snap, busy
}

// computeDesired implements step 5: desired = clamp(busyCount+idleTarget,
// minReplicas, maxReplicas). Spec validity (min <= max) is checked before
// this is ever called.
func computeDesired(hsw *hswv1alpha1.HotStandbyDeployment, busyCount int32) int32 {
	return apis.Clamp(busyCount+hsw.Spec.IdleTarget, hsw.Spec.MinReplicas, hsw.Spec.MaxReplicas)
}

// validateSpec rejects a spec the reconciler refuses to act on.
func validateSpec(hsw *hswv1alpha1.HotStandbyDeployment) error {
	if hsw.Spec.MinReplicas > hsw.Spec.MaxReplicas {
		return &apis.InvalidSpecError{
			Namespace: hsw.Namespace,
			Name:      hsw.Name,
			Reason:    fmt.Sprintf("minReplicas (%d) > maxReplicas (%d)", hsw.Spec.MinReplicas, hsw.Spec.MaxReplicas),
		}
	}
	if hsw.Spec.IdleTarget < 0 {
		return &apis.InvalidSpecError{Namespace: hsw.Namespace, Name: hsw.Name, Reason: "idleTarget must not be negative"}
	}
	if len(hsw.Spec.Selector.MatchLabels) == 0 && len(hsw.Spec.Selector.MatchExpressions) == 0 {
		return &apis.InvalidSpecError{Namespace: hsw.Namespace, Name: hsw.Name, Reason: "selector must not be empty"}
	}
	return nil
}

// childReconcileResult describes what reconcileChild did, for logging and
// event emission.
type childReconcileResult struct {
	created          bool
	replicasChanged  bool
	templateChanged  bool
	previousReplicas int32
}

// reconcileChild implements step 6.
func (r *HotStandbyDeploymentReconciler) reconcileChild(ctx context.Context, hsw *hswv1alpha1.HotStandbyDeployment, childName string, desired int32) (childReconcileResult, error) {
	mergedTemplate := mergedPodTemplate(hsw.Spec.PodTemplate, hsw.Spec.Selector.MatchLabels)
	hash, err := templateHash(mergedTemplate)
	if err != nil {
		return childReconcileResult{}, err
	}

	var child appsv1.Deployment
	err = r.Get(ctx, types.NamespacedName{Namespace: hsw.Namespace, Name: childName}, &child)
	if k8serrors.IsNotFound(err) {
		child = appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Namespace:   hsw.Namespace,
				Name:        childName,
				Annotations: map[string]string{templateHashAnnotationKey: hash},
			},
			Spec: appsv1.DeploymentSpec{
				Replicas: int32Ptr(desired),
				Selector: &metav1.LabelSelector{MatchLabels: hsw.Spec.Selector.MatchLabels},
				Template: mergedTemplate,
			},
		}
		if err := controllerutil.SetControllerReference(hsw, &child, r.Scheme); err != nil {
			return childReconcileResult{}, fmt.Errorf("setting owner reference: %w", err)
		}
		if err := r.Create(ctx, &child); err != nil {
			if k8serrors.IsAlreadyExists(err) {
				return childReconcileResult{}, &apis.OwnershipConflictError{Namespace: hsw.Namespace, ChildName: childName}
			}
			return childReconcileResult{}, fmt.Errorf("creating child workload: %w", err)
		}
		return childReconcileResult{created: true, previousReplicas: 0}, nil
	}
	if err != nil {
		return childReconcileResult{}, fmt.Errorf("getting child workload: %w", err)
	}

	owner := metav1.GetControllerOf(&child)
	if owner == nil || owner.UID != hsw.UID {
		ownerName := ""
		if owner != nil {
			ownerName = owner.Name
		}
		return childReconcileResult{}, &apis.OwnershipConflictError{Namespace: hsw.Namespace, ChildName: childName, Owner: ownerName}
	}

	result := childReconcileResult{previousReplicas: deploymentReplicas(&child)}

	if r.shouldDeferScaleDown(hsw, &child, desired) {
		desired = result.previousReplicas
	}

	if deploymentReplicas(&child) != desired {
		patch := client.MergeFrom(child.DeepCopy())
		child.Spec.Replicas = int32Ptr(desired)
		if err := r.Patch(ctx, &child, patch); err != nil {
			return childReconcileResult{}, fmt.Errorf("patching child replicas: %w", err)
		}
		result.replicasChanged = true
	}

	if child.Annotations[templateHashAnnotationKey] != hash {
		patch := client.MergeFrom(child.DeepCopy())
		child.Spec.Template = mergedTemplate
		if child.Annotations == nil {
			child.Annotations = make(map[string]string, 1)
		}
		child.Annotations[templateHashAnnotationKey] = hash
		if err := r.Patch(ctx, &child, patch); err != nil {
			return childReconcileResult{}, fmt.Errorf("patching child template: %w", err)
		}
		result.templateChanged = true
	}

	return result, nil
}

// templateHashAnnotationKey mirrors the key api/v1alpha1 and internal/annotations
// agree on for the child workload's last-applied template hash.
const templateHashAnnotationKey = "apps.paia.tech/template-hash"

// shouldDeferScaleDown implements the optional hysteresis window: a replica
// reduction is delayed until desired has held at-or-below the child's
// current replica count for ScaleDownCooldownSeconds. Scale-ups are never
// delayed.
func (r *HotStandbyDeploymentReconciler) shouldDeferScaleDown(hsw *hswv1alpha1.HotStandbyDeployment, child *appsv1.Deployment, desired int32) bool {
	current := deploymentReplicas(child)
	if desired >= current {
		r.cooldownSince.Delete(hswKeyString(hsw))
		return false
	}

	cooldown := hsw.Spec.ScaleDownCooldownSeconds
	if cooldown == nil || *cooldown <= 0 {
		return false
	}

	key := hswKeyString(hsw)
	now := time.Now()
	since, ok := r.cooldownSince.Load(key)
	if !ok {
		r.cooldownSince.Store(key, now)
		return true
	}

	if now.Sub(since.(time.Time)) < time.Duration(*cooldown)*time.Second {
		return true
	}

	r.cooldownSince.Delete(key)
	return false
}

// writeStatus implements step 7: an idempotent status subresource update
// retried on conflict.
func (r *HotStandbyDeploymentReconciler) writeStatus(ctx context.Context, hsw *hswv1alpha1.HotStandbyDeployment, busyCount, idleCount, desired int32) error {
	next := hswv1alpha1.HotStandbyDeploymentStatus{
		ObservedGeneration: hsw.Generation,
		BusyCount:          busyCount,
		IdleCount:          idleCount,
		DesiredReplicas:    desired,
		Conditions:         hsw.Status.Conditions,
	}

	if reflect.DeepEqual(hsw.Status, next) {
		return nil
	}

	backoff := retry.DefaultRetry
	backoff.Steps = 3
	return retry.RetryOnConflict(backoff, func() error {
		var fresh hswv1alpha1.HotStandbyDeployment
		if err := r.Get(ctx, types.NamespacedName{Namespace: hsw.Namespace, Name: hsw.Name}, &fresh); err != nil {
			return err
		}
		fresh.Status = next
		if err := r.Status().Update(ctx, &fresh); err != nil {
			return err
		}
		hsw.Status = next
		return nil
	})
}

// nextRequeue implements step 8: the default bounded resync, pulled in if
// the busy snapshot is stale.
func (r *HotStandbyDeploymentReconciler) nextRequeue(hsw *hswv1alpha1.HotStandbyDeployment, snap probe.Snapshot) time.Duration {
	staleAfter := snapshotStalenessSnapshot
	if hsw.Spec.BusyProbe.Mode == hswv1alpha1.BusyProbeModeHTTP {
		period := time.Duration(hsw.Spec.BusyProbe.HTTP.PeriodSeconds) * time.Second
		if period <= 0 {
			period = 10 * time.Second
		}
		staleAfter = 2 * period
	}

	if time.Since(snap.AsOf) > staleAfter {
		return 5 * time.Second
	}
	return r.DefaultRequeueInterval
}

// proberFor returns the cached BusyProber for key, creating or rebuilding it
// if the HSW's busyProbe configuration has changed.
func (r *HotStandbyDeploymentReconciler) proberFor(key types.NamespacedName, hsw *hswv1alpha1.HotStandbyDeployment) *proberEntry {
	r.proberMu.Lock()
	defer r.proberMu.Unlock()

	mode := hsw.Spec.BusyProbe.Mode
	if mode == "" {
		mode = hswv1alpha1.BusyProbeModeAnnotation
	}
	annotationKey := hsw.Spec.BusyProbe.AnnotationKey
	httpCfg := probe.HTTPProberConfig{
		Port:           hsw.Spec.BusyProbe.HTTP.Port,
		Path:           hsw.Spec.BusyProbe.HTTP.Path,
		SuccessIsBusy:  hsw.Spec.BusyProbe.HTTP.SuccessIsBusy,
		Timeout:        time.Duration(hsw.Spec.BusyProbe.HTTP.TimeoutSeconds) * time.Second,
		Period:         time.Duration(hsw.Spec.BusyProbe.HTTP.PeriodSeconds) * time.Second,
		MaxConcurrency: r.ProbeConcurrency,
	}

	existing, ok := r.probers[key]
	if ok && existing.mode == mode && existing.annotationKey == annotationKey && existing.http == httpCfg {
		return existing
	}

	if ok {
		existing.prober.Close()
	}

	var p probe.BusyProber
	if mode == hswv1alpha1.BusyProbeModeHTTP {
		p = probe.NewHTTPProber(httpCfg)
	} else {
		p = probe.NewAnnotationProber(annotationKey)
	}

	entry := &proberEntry{prober: p, mode: mode, annotationKey: annotationKey, http: httpCfg}
	r.probers[key] = entry
	return entry
}

// forgetHSW closes and drops the cached prober for a deleted HSW.
func (r *HotStandbyDeploymentReconciler) forgetHSW(key types.NamespacedName) {
	r.proberMu.Lock()
	entry, ok := r.probers[key]
	if ok {
		delete(r.probers, key)
	}
	r.proberMu.Unlock()

	if ok {
		entry.prober.Close()
	}
	r.cooldownSince.Delete(key.String())
	if r.SelectorIndex != nil {
		r.SelectorIndex.Delete(key)
	}
}

// SyncPod forwards a pod watcher event to the prober for its owning HSW, so
// annotation-mode classification and HTTP-mode target discovery stay fresh
// between reconciles. ownerKey identifies the HSW the caller has already
// matched pod's labels against.
func (r *HotStandbyDeploymentReconciler) SyncPod(ownerKey types.NamespacedName, pod *corev1.Pod) {
	r.proberMu.Lock()
	entry, ok := r.probers[ownerKey]
	r.proberMu.Unlock()
	if !ok {
		return
	}
	entry.prober.Sync(pod)
}

// DeletePod forwards a pod deletion to ownerKey's prober.
func (r *HotStandbyDeploymentReconciler) DeletePod(ownerKey types.NamespacedName, podUID types.UID) {
	r.proberMu.Lock()
	entry, ok := r.probers[ownerKey]
	r.proberMu.Unlock()
	if !ok {
		return
	}
	entry.prober.Delete(podUID)
}

func (r *HotStandbyDeploymentReconciler) reconcileTimeout() time.Duration {
	if r.ReconcileTimeout > 0 {
		return r.ReconcileTimeout
	}
	return 30 * time.Second
}

func (r *HotStandbyDeploymentReconciler) recordError(req types.NamespacedName, err error) {
	r.errorCount.Add(1)
	r.lastErrorMu.Lock()
	defer r.lastErrorMu.Unlock()
	r.lastError = &ControllerError{Error: err, Timestamp: time.Now(), Request: req}
}

// GetReconcileCount returns the total number of Reconcile invocations.
func (r *HotStandbyDeploymentReconciler) GetReconcileCount() int64 { return r.reconcileCount.Load() }

// GetErrorCount returns the total number of reconciles that returned an error.
func (r *HotStandbyDeploymentReconciler) GetErrorCount() int64 { return r.errorCount.Load() }

// GetLastError returns the most recent reconcile error, if any.
func (r *HotStandbyDeploymentReconciler) GetLastError() *ControllerError {
	r.lastErrorMu.RLock()
	defer r.lastErrorMu.RUnlock()
	return r.lastError
}

func (r *HotStandbyDeploymentReconciler) emitInvalidSpec(hsw *hswv1alpha1.HotStandbyDeployment, err error) {
	r.Events.Warning(hswObjectReference(hsw), EventInvalidSpec, "%v", err)
}

func (r *HotStandbyDeploymentReconciler) emitOwnershipConflict(hsw *hswv1alpha1.HotStandbyDeployment, err *apis.OwnershipConflictError) {
	r.Events.Warning(hswObjectReference(hsw), EventOwnershipConflict, "%v", err)
}

func (r *HotStandbyDeploymentReconciler) emitChildResult(hsw *hswv1alpha1.HotStandbyDeployment, result childReconcileResult) {
	ref := hswObjectReference(hsw)
	switch {
	case result.created:
		r.Events.Normal(ref, EventChildCreated, "created child workload")
	case result.replicasChanged:
		r.Events.Normal(ref, EventChildScaled, "scaled child workload to %d replicas", hsw.Status.DesiredReplicas)
	}
	if result.templateChanged {
		r.Events.Normal(ref, EventTemplateUpdated, "propagated pod template change to child workload")
	}
}

// SetupWithManager wires the reconciler's watches: the HSW itself, its
// child Deployments (filtered by controller ownership), and pods (filtered
// by the reconciler's namespace scope; selector matching happens inside
// listSelectedPods on each reconcile rather than in the watch predicate).
func (r *HotStandbyDeploymentReconciler) SetupWithManager(mgr ctrl.Manager, maxConcurrentReconciles int) error {
	if r.SelectorIndex == nil {
		r.SelectorIndex = NewSelectorIndex()
	}

	builder := ctrl.NewControllerManagedBy(mgr).
		For(&hswv1alpha1.HotStandbyDeployment{}).
		Owns(&appsv1.Deployment{}).
		Watches(&corev1.Pod{}, newPodEventHandler(r.SelectorIndex, r))

	if r.NamespaceScope != nil {
		builder = builder.WithEventFilter(r.NamespaceScope.Predicate())
	}

	return builder.
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrentReconciles}).
		Complete(r)
}

func int32Ptr(v int32) *int32 { return &v }

func deploymentReplicas(d *appsv1.Deployment) int32 {
	if d.Spec.Replicas == nil {
		return 0
	}
	return *d.Spec.Replicas
}

func hswKeyString(hsw *hswv1alpha1.HotStandbyDeployment) string {
	return hsw.Namespace + "/" + hsw.Name
}

func hswObjectReference(hsw *hswv1alpha1.HotStandbyDeployment) *corev1.ObjectReference {
	return &corev1.ObjectReference{
		APIVersion: hswv1alpha1.GroupVersion.String(),
		Kind:       "HotStandbyDeployment",
		Namespace:  hsw.Namespace,
		Name:       hsw.Name,
		UID:        hsw.UID,
	}
}

func isOwnershipConflict(err error, target **apis.OwnershipConflictError) bool {
	conflict, ok := err.(*apis.OwnershipConflictError)
	if ok {
		*target = conflict
	}
	return ok
}

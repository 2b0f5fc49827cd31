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

package apis

import "fmt"

// InvalidSpecError marks a HotStandbyDeployment spec that the reconciler
// refuses to act on: minReplicas > maxReplicas, an empty selector, or a
// negative idleTarget. The reconciler skips mutation, emits an event, and
// requeues at a long interval without aggressive backoff.
type InvalidSpecError struct {
	Namespace string
	Name      string
	Reason    string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec for %s/%s: %s", e.Namespace, e.Name, e.Reason)
}

// OwnershipConflictError marks a child workload that exists but is not
// controlled by the HSW attempting to reconcile it: either a foreign
// controller owner reference, or none at all.
type OwnershipConflictError struct {
	Namespace string
	ChildName string
	Owner     string
}

func (e *OwnershipConflictError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("child workload %s/%s has no controller owner reference", e.Namespace, e.ChildName)
	}
	return fmt.Sprintf("child workload %s/%s is controlled by %s", e.Namespace, e.ChildName, e.Owner)
}

// ProbeFailureError records a busy-probe request that failed; it is never
// returned to the reconciler as a hard error, only recorded on the busy
// table entry as lastProbeError.
type ProbeFailureError struct {
	PodName string
	Cause   error
}

func (e *ProbeFailureError) Error() string {
	return fmt.Sprintf("probe failed for pod %s: %v", e.PodName, e.Cause)
}

func (e *ProbeFailureError) Unwrap() error {
	return e.Cause
}

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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"

	corev1 "k8s.io/api/core/v1"
)

// templateHash returns the FNV-1a hash of tmpl's canonical JSON encoding,
// hex-encoded. It is recomputed on every reconcile and compared against the
// child workload's stored hash to decide whether the template changed.
func templateHash(tmpl corev1.PodTemplateSpec) (string, error) {
	canonical, err := json.Marshal(tmpl)
	if err != nil {
		return "", fmt.Errorf("marshaling pod template: %w", err)
	}

	h := fnv.New64a()
	if _, err := h.Write(canonical); err != nil {
		return "", fmt.Errorf("hashing pod template: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// mergedPodTemplate returns a copy of tmpl with selector's match labels
// merged into the pod template's labels, so the child workload's selector
// always matches the pods it creates.
func mergedPodTemplate(tmpl corev1.PodTemplateSpec, selectorLabels map[string]string) corev1.PodTemplateSpec {
	merged := *tmpl.DeepCopy()
	if merged.Labels == nil {
		merged.Labels = make(map[string]string, len(selectorLabels))
	}
	for k, v := range selectorLabels {
		merged.Labels[k] = v
	}
	return merged
}

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

// Package annotations implements busy-signal and template-hash annotation
// parsing for hot-standby workloads.
package annotations

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DefaultBusyAnnotationKey is used when a HotStandbyDeployment does not
// override busyProbe.annotationKey.
const DefaultBusyAnnotationKey = "paia.tech/busy"

// TemplateHashAnnotation stores the FNV-1a hash of the last materialized pod
// template applied to a child workload.
const TemplateHashAnnotation = "apps.paia.tech/template-hash"

// BusyTrueValue is the only annotation value that counts as busy; anything
// else, including absence of the key, counts as idle.
const BusyTrueValue = "true"

// AnnotationParser reads and writes the small set of annotations this
// controller cares about: the per-pod busy signal and the per-child
// template-hash marker.
type AnnotationParser struct{}

// NewAnnotationParser creates a new annotation parser.
func NewAnnotationParser() *AnnotationParser {
	return &AnnotationParser{}
}

// IsBusy reports whether obj carries annotationKey with the exact value
// "true". Comparison is case-sensitive; a missing key or any other value is
// idle.
func (p *AnnotationParser) IsBusy(obj metav1.Object, annotationKey string) bool {
	value, ok := p.GetAnnotationValue(obj, annotationKey)
	if !ok {
		return false
	}
	return value == BusyTrueValue
}

// GetAnnotationValue returns the value of a named annotation and whether it
// was present.
func (p *AnnotationParser) GetAnnotationValue(obj metav1.Object, key string) (string, bool) {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		return "", false
	}
	value, exists := annotations[key]
	return value, exists
}

// SetAnnotationValue sets a single annotation on obj, creating the
// annotations map if necessary.
func (p *AnnotationParser) SetAnnotationValue(obj metav1.Object, key, value string) {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string, 1)
	}
	annotations[key] = value
	obj.SetAnnotations(annotations)
}

// RemoveAnnotation deletes a named annotation from obj if present.
func (p *AnnotationParser) RemoveAnnotation(obj metav1.Object, key string) {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		return
	}
	delete(annotations, key)
	obj.SetAnnotations(annotations)
}

// TemplateHash returns the value of the template-hash annotation on obj, if
// any.
func (p *AnnotationParser) TemplateHash(obj metav1.Object) (string, bool) {
	return p.GetAnnotationValue(obj, TemplateHashAnnotation)
}

// SetTemplateHash records the materialized template's hash on obj.
func (p *AnnotationParser) SetTemplateHash(obj metav1.Object, hash string) {
	p.SetAnnotationValue(obj, TemplateHashAnnotation, hash)
}

// ValidateAnnotationKey rejects an empty busy-probe annotation key; the CRD
// default covers the common case but an empty override is a configuration
// mistake, not a legal "disable the probe" switch.
func ValidateAnnotationKey(key string) error {
	if key == "" {
		return fmt.Errorf("busyProbe.annotationKey must not be empty")
	}
	return nil
}

// ResolveAnnotationKey returns key if non-empty, otherwise the package
// default.
func ResolveAnnotationKey(key string) string {
	if key == "" {
		return DefaultBusyAnnotationKey
	}
	return key
}

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

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// BusyProbeMode selects how a pod's busy state is determined.
// +kubebuilder:validation:Enum=annotation;http
type BusyProbeMode string

const (
	// BusyProbeModeAnnotation derives busy state from a pod annotation, updated
	// purely from watcher events.
	BusyProbeModeAnnotation BusyProbeMode = "annotation"
	// BusyProbeModeHTTP derives busy state from a periodic HTTP probe against
	// each selected pod's IP.
	BusyProbeModeHTTP BusyProbeMode = "http"
)

// HTTPProbeSpec configures the periodic HTTP busy probe.
type HTTPProbeSpec struct {
	// Port is the container port to probe.
	// +kubebuilder:default=8080
	Port int32 `json:"port,omitempty"`

	// Path is the HTTP path to probe.
	// +kubebuilder:default="/busy"
	Path string `json:"path,omitempty"`

	// SuccessIsBusy controls how the HTTP response status is interpreted. When
	// true (the default) a 2xx response means busy; when false it means idle.
	// +kubebuilder:default=true
	SuccessIsBusy bool `json:"successIsBusy,omitempty"`

	// TimeoutSeconds bounds a single probe request.
	// +kubebuilder:default=1
	// +kubebuilder:validation:Minimum=1
	TimeoutSeconds int32 `json:"timeoutSeconds,omitempty"`

	// PeriodSeconds is the interval between probe cycles for a given HSW.
	// +kubebuilder:default=10
	// +kubebuilder:validation:Minimum=1
	PeriodSeconds int32 `json:"periodSeconds,omitempty"`
}

// BusyProbeSpec selects and configures the busy-detection strategy for a HSW.
type BusyProbeSpec struct {
	// Mode selects the busy-probe implementation.
	// +kubebuilder:default=annotation
	Mode BusyProbeMode `json:"mode,omitempty"`

	// AnnotationKey is the pod annotation consulted in annotation mode. A
	// value of exactly "true" means busy; anything else, including absence of
	// the key, means idle.
	// +kubebuilder:default="paia.tech/busy"
	AnnotationKey string `json:"annotationKey,omitempty"`

	// HTTP configures the periodic probe used in http mode.
	HTTP HTTPProbeSpec `json:"http,omitempty"`
}

// HotStandbyDeploymentSpec defines the desired idle-buffer behavior for a
// managed workload.
type HotStandbyDeploymentSpec struct {
	// IdleTarget is the number of idle replicas the controller tries to keep
	// available in addition to the busy ones.
	// +kubebuilder:validation:Minimum=0
	IdleTarget int32 `json:"idleTarget"`

	// MinReplicas is a floor on the computed desired replica count.
	// +kubebuilder:default=0
	// +kubebuilder:validation:Minimum=0
	MinReplicas int32 `json:"minReplicas,omitempty"`

	// MaxReplicas is a ceiling on the computed desired replica count.
	// +kubebuilder:default=1000000
	// +kubebuilder:validation:Minimum=1
	MaxReplicas int32 `json:"maxReplicas,omitempty"`

	// Selector identifies the pods this HSW considers its own. It is also
	// used verbatim as the child workload's pod selector.
	Selector metav1.LabelSelector `json:"selector"`

	// PodTemplate is copied verbatim into the child workload, with labels
	// merged so every selector key is present.
	PodTemplate corev1.PodTemplateSpec `json:"podTemplate"`

	// BusyProbe configures how pods are classified busy or idle.
	BusyProbe BusyProbeSpec `json:"busyProbe,omitempty"`

	// ScaleDownCooldownSeconds, when set and positive, delays a replica
	// reduction until the lower desired count has held for this many
	// seconds. Zero (the default) scales down immediately.
	// +kubebuilder:default=0
	ScaleDownCooldownSeconds *int32 `json:"scaleDownCooldownSeconds,omitempty"`
}

// HotStandbyDeploymentStatus reports the controller's last reconciled view of
// a HSW's pod population and the child workload it drives.
type HotStandbyDeploymentStatus struct {
	// ObservedGeneration echoes spec.generation as of the last successful
	// status write.
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// BusyCount is the number of selected pods currently considered busy.
	BusyCount int32 `json:"busyCount"`

	// IdleCount is the number of selected pods currently considered idle.
	IdleCount int32 `json:"idleCount"`

	// DesiredReplicas is the clamp(busyCount+idleTarget, min, max) result
	// last applied to the child workload.
	DesiredReplicas int32 `json:"desiredReplicas"`

	// Conditions surfaces InvalidSpec/OwnershipConflict and similar
	// terminal-for-the-generation states.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=hsw
// +kubebuilder:printcolumn:name="IdleTarget",type=integer,JSONPath=`.spec.idleTarget`
// +kubebuilder:printcolumn:name="Busy",type=integer,JSONPath=`.status.busyCount`
// +kubebuilder:printcolumn:name="Idle",type=integer,JSONPath=`.status.idleCount`
// +kubebuilder:printcolumn:name="Desired",type=integer,JSONPath=`.status.desiredReplicas`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
// +genclient

// HotStandbyDeployment is the Schema for the hotstandbydeployments API.
type HotStandbyDeployment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   HotStandbyDeploymentSpec   `json:"spec,omitempty"`
	Status HotStandbyDeploymentStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// HotStandbyDeploymentList contains a list of HotStandbyDeployment.
type HotStandbyDeploymentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []HotStandbyDeployment `json:"items"`
}

func init() {
	SchemeBuilder.Register(&HotStandbyDeployment{}, &HotStandbyDeploymentList{})
}

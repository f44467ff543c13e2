package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// LastActiveAnnotation records the last time a task was dispatched to an actor environment.
// Its value is an RFC3339 timestamp.
const LastActiveAnnotation = "actors.actorflow.io/last-active"

// ResourceRequest is the compute an actor replica asks for.
// Values are Kubernetes quantities ("2", "300Mi", "1").
type ResourceRequest struct {
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
	GPU    string `json:"gpu,omitempty"`
}

// ImageSource describes how the actor image was assembled
type ImageSource struct {
	Name      string   `json:"name,omitempty"`
	Registry  string   `json:"registry,omitempty"`
	BaseImage string   `json:"baseImage,omitempty"`
	Packages  []string `json:"packages,omitempty"`
	Builder   string   `json:"builder,omitempty"`
}

// ActorEnvironmentSpec defines a named pool of warm replicas that serve actor tasks.
type ActorEnvironmentSpec struct {
	// Image is the resolved container image reference
	Image string `json:"image"`
	// ImageSource is kept for provenance when the image was built from a spec
	ImageSource *ImageSource `json:"imageSource,omitempty"`

	ReplicaCount int32           `json:"replicaCount"`
	TTLSeconds   int32           `json:"ttlSeconds"` // Idle time before replicas are scaled to zero
	Resources    ResourceRequest `json:"resources"`
}

// ActorPhase is the lifecycle phase of an actor environment
type ActorPhase string

const (
	PhaseProvisioning ActorPhase = "Provisioning"
	PhaseReady        ActorPhase = "Ready"
	PhaseIdle         ActorPhase = "Idle"
)

// ActorEnvironmentStatus is the observed state of an actor environment.
type ActorEnvironmentStatus struct {
	Phase          ActorPhase   `json:"phase,omitempty"`
	ReadyReplicas  int32        `json:"readyReplicas,omitempty"`
	LastActiveTime *metav1.Time `json:"lastActiveTime,omitempty"`
	Message        string       `json:"message,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// ActorEnvironment is the Schema for the actorenvironments API
type ActorEnvironment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ActorEnvironmentSpec   `json:"spec,omitempty"`
	Status ActorEnvironmentStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ActorEnvironmentList contains a list of ActorEnvironment
type ActorEnvironmentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ActorEnvironment `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ActorEnvironment{}, &ActorEnvironmentList{})
}

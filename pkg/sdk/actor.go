package sdk

import (
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// DefaultTTL applies when an environment does not set TTLSeconds
const DefaultTTL = 60 * time.Second

// ActorOptions configures an actor environment
type ActorOptions struct {
	Name           string
	ContainerImage *ImageSpec // Built image; ignored when Image is set
	Image          string     // Prebuilt image reference
	ReplicaCount   int32
	TTLSeconds     int32
	Requests       Resources
}

// ActorEnvironment is a named pool of warm replicas with fixed resources.
// Tasks bound to it reuse replicas, and any state cached on a replica, until the
// environment has been idle for its TTL.
type ActorEnvironment struct {
	name     string
	image    string
	source   *ImageSpec
	replicas int32
	ttl      time.Duration
	requests Resources
}

// NewActorEnvironment validates opts and builds the environment
func NewActorEnvironment(opts ActorOptions) (*ActorEnvironment, error) {
	if errs := validation.IsDNS1123Label(opts.Name); len(errs) > 0 {
		return nil, fmt.Errorf("invalid actor environment name %q: %v", opts.Name, errs)
	}
	if opts.ReplicaCount < 1 {
		return nil, fmt.Errorf("actor environment %s: replica count must be at least 1, got %d", opts.Name, opts.ReplicaCount)
	}
	if opts.TTLSeconds < 0 {
		return nil, fmt.Errorf("actor environment %s: ttl must not be negative, got %d", opts.Name, opts.TTLSeconds)
	}
	if err := opts.Requests.Validate(); err != nil {
		return nil, fmt.Errorf("actor environment %s: %w", opts.Name, err)
	}

	env := &ActorEnvironment{
		name:     opts.Name,
		replicas: opts.ReplicaCount,
		ttl:      time.Duration(opts.TTLSeconds) * time.Second,
		requests: opts.Requests,
	}
	if env.ttl == 0 {
		env.ttl = DefaultTTL
	}

	switch {
	case opts.Image != "":
		env.image = opts.Image
	case opts.ContainerImage != nil:
		spec := *opts.ContainerImage
		env.source = &spec
		env.image = spec.Reference()
	default:
		env.image = DefaultImage
	}
	return env, nil
}

// MustActorEnvironment is like NewActorEnvironment but panics on invalid options.
// Intended for package-level declarations.
func MustActorEnvironment(opts ActorOptions) *ActorEnvironment {
	env, err := NewActorEnvironment(opts)
	if err != nil {
		panic(err)
	}
	return env
}

func (e *ActorEnvironment) Name() string { return e.name }
func (e *ActorEnvironment) Image() string { return e.image }
func (e *ActorEnvironment) ReplicaCount() int32 { return e.replicas }
func (e *ActorEnvironment) TTL() time.Duration { return e.ttl }
func (e *ActorEnvironment) Requests() Resources { return e.requests }
func (e *ActorEnvironment) ImageSpec() *ImageSpec { return e.source }

// Spec returns the API spec for this environment
func (e *ActorEnvironment) Spec() actorsv1.ActorEnvironmentSpec {
	spec := actorsv1.ActorEnvironmentSpec{
		Image:        e.image,
		ReplicaCount: e.replicas,
		TTLSeconds:   int32(e.ttl / time.Second),
		Resources:    e.requests.ToRequest(),
	}
	if e.source != nil {
		spec.ImageSource = e.source.source()
	}
	return spec
}

// Manifest returns the ActorEnvironment custom resource for namespace
func (e *ActorEnvironment) Manifest(namespace string) *actorsv1.ActorEnvironment {
	return &actorsv1.ActorEnvironment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: actorsv1.GroupVersion.String(),
			Kind:       "ActorEnvironment",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      e.name,
			Namespace: namespace,
			Labels: map[string]string{
				"app.kubernetes.io/name":    e.name,
				"app.kubernetes.io/part-of": "actorflow",
			},
		},
		Spec: e.Spec(),
	}
}

// equal reports whether two environments describe the same deployment
func (e *ActorEnvironment) equal(o *ActorEnvironment) bool {
	return e.name == o.name &&
		e.image == o.image &&
		e.replicas == o.replicas &&
		e.ttl == o.ttl &&
		e.requests == o.requests
}

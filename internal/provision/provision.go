// Package provision builds the Kubernetes objects that back an ActorEnvironment:
// a Deployment of actor replicas and a ClusterIP Service in front of them.
package provision

import (
	"fmt"
	"sort"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/actorserver"
)

// GPUResource is the extended resource requested for GPUs
const GPUResource corev1.ResourceName = "nvidia.com/gpu"

// ContainerName is the name of the replica container
const ContainerName = "actor"

// Options tunes the generated objects
type Options struct {
	// Command starts the actor server; the environment flags are appended
	Command []string
	// Env is passed to every replica
	Env map[string]string
	// SecretEnv maps variable names to Secret keys passed to every replica
	SecretEnv map[string]corev1.SecretKeySelector
	// Port the actor server listens on
	Port int32
}

// DefaultOptions returns options for the stock actorflow image
func DefaultOptions() Options {
	return Options{
		Command: []string{"actorctl", "actor", "serve"},
		Port:    actorserver.DefaultPort,
	}
}

// Labels selects the replicas of an environment
func Labels(env *actorsv1.ActorEnvironment) map[string]string {
	return map[string]string{
		"actor":                     env.Name,
		"app.kubernetes.io/name":    env.Name,
		"app.kubernetes.io/part-of": "actorflow",
	}
}

// BuildDeployment converts the environment into a Deployment with the given replica count
func BuildDeployment(env *actorsv1.ActorEnvironment, replicas int32, opts Options) (*appsv1.Deployment, error) {
	resources, err := buildResources(env.Spec.Resources)
	if err != nil {
		return nil, fmt.Errorf("actor environment %s: %w", env.Name, err)
	}
	port := opts.Port
	if port == 0 {
		port = actorserver.DefaultPort
	}

	args := []string{"--env", env.Name, "--addr", ":" + strconv.Itoa(int(port))}
	command := append(append([]string{}, opts.Command...), args...)

	labels := Labels(env)
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"actor": env.Name}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:      ContainerName,
							Image:     env.Spec.Image,
							Command:   command,
							Env:       buildEnv(env.Name, opts.Env, opts.SecretEnv),
							Resources: resources,
							Ports: []corev1.ContainerPort{
								{Name: "http", ContainerPort: port, Protocol: corev1.ProtocolTCP},
							},
							ReadinessProbe: &corev1.Probe{
								ProbeHandler: corev1.ProbeHandler{
									HTTPGet: &corev1.HTTPGetAction{Path: "/healthz", Port: intstr.FromString("http")},
								},
							},
						},
					},
				},
			},
		},
	}, nil
}

// BuildService exposes the replicas at {name}.{namespace}.svc
func BuildService(env *actorsv1.ActorEnvironment, opts Options) *corev1.Service {
	port := opts.Port
	if port == 0 {
		port = actorserver.DefaultPort
	}
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    Labels(env),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{"actor": env.Name},
			Ports: []corev1.ServicePort{
				{Name: "http", Port: port, TargetPort: intstr.FromString("http"), Protocol: corev1.ProtocolTCP},
			},
		},
	}
}

// buildResources sets requests equal to limits
func buildResources(req actorsv1.ResourceRequest) (corev1.ResourceRequirements, error) {
	list := corev1.ResourceList{}
	for name, value := range map[corev1.ResourceName]string{
		corev1.ResourceCPU:    req.CPU,
		corev1.ResourceMemory: req.Memory,
		GPUResource:           req.GPU,
	} {
		if value == "" {
			continue
		}
		q, err := resource.ParseQuantity(value)
		if err != nil {
			return corev1.ResourceRequirements{}, fmt.Errorf("invalid %s quantity %q: %w", name, value, err)
		}
		list[name] = q
	}
	return corev1.ResourceRequirements{Requests: list, Limits: list.DeepCopy()}, nil
}

// buildEnv converts maps to EnvVar slice, plain values first
func buildEnv(envName string, extra map[string]string, secrets map[string]corev1.SecretKeySelector) []corev1.EnvVar {
	envVars := []corev1.EnvVar{{Name: "ACTORFLOW_ENV", Value: envName}}
	for _, k := range sortedKeys(extra) {
		envVars = append(envVars, corev1.EnvVar{Name: k, Value: extra[k]})
	}
	for _, k := range sortedKeys(secrets) {
		ref := secrets[k]
		envVars = append(envVars, corev1.EnvVar{
			Name:      k,
			ValueFrom: &corev1.EnvVarSource{SecretKeyRef: &ref},
		})
	}
	return envVars
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

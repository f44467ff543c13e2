package sdk

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// Resources is the compute request of an actor environment.
type Resources struct {
	CPU string
	Mem string
	GPU string // Optional, number of GPUs
}

// Validate checks that every set field is a valid Kubernetes quantity
func (r Resources) Validate() error {
	if r.CPU == "" {
		return fmt.Errorf("cpu request is required")
	}
	if r.Mem == "" {
		return fmt.Errorf("memory request is required")
	}
	for name, value := range map[string]string{"cpu": r.CPU, "mem": r.Mem, "gpu": r.GPU} {
		if value == "" {
			continue
		}
		q, err := resource.ParseQuantity(value)
		if err != nil {
			return fmt.Errorf("invalid %s quantity %q: %w", name, value, err)
		}
		if q.Sign() < 0 {
			return fmt.Errorf("%s quantity %q must not be negative", name, value)
		}
	}
	return nil
}

// ToRequest converts to the API representation
func (r Resources) ToRequest() actorsv1.ResourceRequest {
	return actorsv1.ResourceRequest{
		CPU:    r.CPU,
		Memory: r.Mem,
		GPU:    r.GPU,
	}
}

package controller

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/provision"
	"github.com/kination/actorflow/pkg/sdk"
)

// ActorEnvironmentReconciler reconciles an ActorEnvironment object
// +kubebuilder:rbac:groups=actors.actorflow.io,resources=actorenvironments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=actors.actorflow.io,resources=actorenvironments/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;update;patch;delete
type ActorEnvironmentReconciler struct {
	client.Client
	Scheme  *runtime.Scheme
	Clock   clock.PassiveClock
	Options provision.Options
}

func (r *ActorEnvironmentReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := log.FromContext(ctx)

	var env actorsv1.ActorEnvironment
	if err := r.Get(ctx, req.NamespacedName, &env); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	now := r.clock().Now()
	lastActive := lastActiveTime(&env, now)
	ttl := time.Duration(env.Spec.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = sdk.DefaultTTL
	}
	idleFor := now.Sub(lastActive)
	idle := idleFor >= ttl

	replicas := env.Spec.ReplicaCount
	if idle {
		replicas = 0
	}

	dep, err := r.reconcileDeployment(ctx, &env, replicas)
	if err != nil {
		return ctrl.Result{}, err
	}
	if err := r.reconcileService(ctx, &env); err != nil {
		return ctrl.Result{}, err
	}

	status := actorsv1.ActorEnvironmentStatus{
		LastActiveTime: &metav1.Time{Time: lastActive.UTC().Truncate(time.Second)},
		ReadyReplicas:  dep.Status.ReadyReplicas,
	}
	switch {
	case idle:
		status.Phase = actorsv1.PhaseIdle
		status.ReadyReplicas = 0
		status.Message = fmt.Sprintf("No tasks for %s, scaled to zero", idleFor.Truncate(time.Second))
	case dep.Status.ReadyReplicas > 0:
		status.Phase = actorsv1.PhaseReady
		status.Message = fmt.Sprintf("%d/%d replicas ready", dep.Status.ReadyReplicas, replicas)
	default:
		status.Phase = actorsv1.PhaseProvisioning
		status.Message = "Waiting for replicas"
	}

	if !equality.Semantic.DeepEqual(env.Status, status) {
		if env.Status.Phase != status.Phase {
			log.Info("Actor environment phase changed", "env", env.Name, "from", env.Status.Phase, "to", status.Phase)
		}
		env.Status = status
		if err := r.Status().Update(ctx, &env); err != nil {
			return ctrl.Result{}, err
		}
	}

	// Idle environments wake up when a task marks them active again
	if idle {
		return ctrl.Result{}, nil
	}
	return ctrl.Result{RequeueAfter: ttl - idleFor}, nil
}

func (r *ActorEnvironmentReconciler) reconcileDeployment(ctx context.Context, env *actorsv1.ActorEnvironment, replicas int32) (*appsv1.Deployment, error) {
	desired, err := provision.BuildDeployment(env, replicas, r.Options)
	if err != nil {
		return nil, err
	}

	dep := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	op, err := controllerutil.CreateOrUpdate(ctx, r.Client, dep, func() error {
		dep.Labels = desired.Labels
		dep.Spec.Replicas = desired.Spec.Replicas
		if dep.CreationTimestamp.IsZero() {
			// The selector is immutable once created
			dep.Spec.Selector = desired.Spec.Selector
		}
		dep.Spec.Template = desired.Spec.Template
		return controllerutil.SetControllerReference(env, dep, r.Scheme)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile deployment %s: %w", desired.Name, err)
	}
	if op != controllerutil.OperationResultNone {
		log.FromContext(ctx).Info("Deployment reconciled", "deployment", dep.Name, "operation", op, "replicas", replicas)
	}
	return dep, nil
}

func (r *ActorEnvironmentReconciler) reconcileService(ctx context.Context, env *actorsv1.ActorEnvironment) error {
	desired := provision.BuildService(env, r.Options)

	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: desired.Namespace}}
	_, err := controllerutil.CreateOrUpdate(ctx, r.Client, svc, func() error {
		svc.Labels = desired.Labels
		svc.Spec.Type = desired.Spec.Type
		svc.Spec.Selector = desired.Spec.Selector
		svc.Spec.Ports = desired.Spec.Ports
		return controllerutil.SetControllerReference(env, svc, r.Scheme)
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile service %s: %w", desired.Name, err)
	}
	return nil
}

func (r *ActorEnvironmentReconciler) clock() clock.PassiveClock {
	if r.Clock == nil {
		return clock.RealClock{}
	}
	return r.Clock
}

// lastActiveTime reads the activity annotation, falling back to the creation time
func lastActiveTime(env *actorsv1.ActorEnvironment, now time.Time) time.Time {
	if v, ok := env.Annotations[actorsv1.LastActiveAnnotation]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	if !env.CreationTimestamp.IsZero() {
		return env.CreationTimestamp.Time
	}
	return now
}

// SetupWithManager sets up the controller with the Manager.
func (r *ActorEnvironmentReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&actorsv1.ActorEnvironment{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Complete(r)
}

package controller

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	testingclock "k8s.io/utils/clock/testing"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/internal/provision"
	"github.com/kination/actorflow/pkg/sdk"
)

var _ = Describe("ActorEnvironment controller", func() {
	var (
		ctx        context.Context
		scheme     *runtime.Scheme
		cl         client.Client
		fakeClock  *testingclock.FakePassiveClock
		reconciler *ActorEnvironmentReconciler
		key        types.NamespacedName
		lastActive time.Time
	)

	reconcile := func() ctrl.Result {
		res, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	getEnv := func() *actorsv1.ActorEnvironment {
		env := &actorsv1.ActorEnvironment{}
		Expect(cl.Get(ctx, key, env)).To(Succeed())
		return env
	}

	getDeployment := func() *appsv1.Deployment {
		dep := &appsv1.Deployment{}
		Expect(cl.Get(ctx, key, dep)).To(Succeed())
		return dep
	}

	BeforeEach(func() {
		ctx = context.Background()
		scheme = newTestScheme()
		lastActive = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

		env := sdk.MustActorEnvironment(sdk.ActorOptions{
			Name:         "gpu-llm-actor",
			ReplicaCount: 1,
			TTLSeconds:   120,
			Requests:     sdk.Resources{CPU: "1", Mem: "2000Mi", GPU: "1"},
		}).Manifest("ml")
		env.Annotations = map[string]string{actorsv1.LastActiveAnnotation: lastActive.Format(time.RFC3339)}
		key = types.NamespacedName{Namespace: "ml", Name: env.Name}

		cl = fake.NewClientBuilder().
			WithScheme(scheme).
			WithStatusSubresource(&actorsv1.ActorEnvironment{}, &appsv1.Deployment{}).
			WithObjects(env).
			Build()
		fakeClock = testingclock.NewFakePassiveClock(lastActive.Add(10 * time.Second))
		reconciler = &ActorEnvironmentReconciler{
			Client:  cl,
			Scheme:  scheme,
			Clock:   fakeClock,
			Options: provision.DefaultOptions(),
		}
	})

	It("provisions a deployment and service owned by the environment", func() {
		res := reconcile()
		Expect(res.RequeueAfter).To(Equal(110 * time.Second))

		dep := getDeployment()
		Expect(*dep.Spec.Replicas).To(Equal(int32(1)))
		Expect(dep.OwnerReferences).To(HaveLen(1))
		Expect(dep.OwnerReferences[0].Kind).To(Equal("ActorEnvironment"))
		Expect(dep.Spec.Template.Spec.Containers[0].Resources.Limits).To(HaveKey(provision.GPUResource))

		svc := &corev1.Service{}
		Expect(cl.Get(ctx, key, svc)).To(Succeed())
		Expect(svc.Spec.Selector).To(HaveKeyWithValue("actor", "gpu-llm-actor"))
		Expect(svc.OwnerReferences).To(HaveLen(1))

		env := getEnv()
		Expect(env.Status.Phase).To(Equal(actorsv1.PhaseProvisioning))
		Expect(env.Status.LastActiveTime.Time.Equal(lastActive)).To(BeTrue())
	})

	It("reports Ready once the deployment has ready replicas", func() {
		reconcile()

		dep := getDeployment()
		dep.Status.ReadyReplicas = 1
		Expect(cl.Status().Update(ctx, dep)).To(Succeed())

		reconcile()
		env := getEnv()
		Expect(env.Status.Phase).To(Equal(actorsv1.PhaseReady))
		Expect(env.Status.ReadyReplicas).To(Equal(int32(1)))
	})

	It("scales to zero after the TTL without activity", func() {
		reconcile()

		fakeClock.SetTime(lastActive.Add(120 * time.Second))
		res := reconcile()
		Expect(res.RequeueAfter).To(BeZero())

		Expect(*getDeployment().Spec.Replicas).To(Equal(int32(0)))
		env := getEnv()
		Expect(env.Status.Phase).To(Equal(actorsv1.PhaseIdle))
		Expect(env.Status.ReadyReplicas).To(BeZero())
	})

	It("scales back up when a task marks the environment active", func() {
		fakeClock.SetTime(lastActive.Add(time.Hour))
		reconcile()
		Expect(*getDeployment().Spec.Replicas).To(Equal(int32(0)))

		env := getEnv()
		env.Annotations[actorsv1.LastActiveAnnotation] = fakeClock.Now().Format(time.RFC3339)
		Expect(cl.Update(ctx, env)).To(Succeed())

		res := reconcile()
		Expect(res.RequeueAfter).To(Equal(120 * time.Second))
		Expect(*getDeployment().Spec.Replicas).To(Equal(int32(1)))
		Expect(getEnv().Status.Phase).To(Equal(actorsv1.PhaseProvisioning))
	})

	It("applies spec changes to the deployment", func() {
		reconcile()

		env := getEnv()
		env.Spec.ReplicaCount = 3
		env.Spec.Image = "registry.local/llm:2"
		Expect(cl.Update(ctx, env)).To(Succeed())

		reconcile()
		dep := getDeployment()
		Expect(*dep.Spec.Replicas).To(Equal(int32(3)))
		Expect(dep.Spec.Template.Spec.Containers[0].Image).To(Equal("registry.local/llm:2"))
	})

	It("ignores environments that no longer exist", func() {
		key = types.NamespacedName{Namespace: "ml", Name: "gone"}
		Expect(reconcile()).To(Equal(ctrl.Result{}))
	})
})

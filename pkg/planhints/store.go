// Package planhints publishes and retrieves BalancePlan objects against a
// Kubernetes API server, so planner runs and an external job-submission
// system can coordinate through a single cluster-scoped resource instead of
// a side channel.
package planhints

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"

	clusterbalv1alpha1 "github.com/hsalcedo/clusterbal/pkg/api/v1alpha1"
)

var balancePlanResource = schema.GroupVersionResource{
	Group:    clusterbalv1alpha1.GroupName,
	Version:  "v1alpha1",
	Resource: "balanceplans",
}

// PlanStore reads and writes BalancePlan objects through a dynamic client,
// so no generated clientset needs to be vendored for this single resource.
type PlanStore struct {
	client dynamic.Interface
	logger klog.Logger
}

// NewPlanStore wraps an existing dynamic client. Callers typically build
// client from a rest.Config via dynamic.NewForConfig.
func NewPlanStore(client dynamic.Interface, logger klog.Logger) *PlanStore {
	return &PlanStore{client: client, logger: logger}
}

// Publish creates a new BalancePlan named name.
func (s *PlanStore) Publish(ctx context.Context, name string, plan clusterbalv1alpha1.BalancePlan) error {
	plan.TypeMeta = metav1.TypeMeta{APIVersion: clusterbalv1alpha1.SchemeGroupVersion.String(), Kind: "BalancePlan"}
	plan.Name = name

	obj, err := toUnstructured(&plan)
	if err != nil {
		return fmt.Errorf("planhints: encode %q: %w", name, err)
	}
	if _, err := s.client.Resource(balancePlanResource).Create(ctx, obj, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("planhints: publish %q: %w", name, err)
	}
	s.logger.Info("published balance plan", "name", name, "placements", len(plan.Spec.Placements))
	return nil
}

// MarkJobsetApplied records that jobset index idx of plan name was
// submitted, retrying on update conflicts the way the teacher's atomic
// slot-reservation client does: get-fresh, mutate, update, retry with
// exponential backoff on a conflict, give up on any other error.
func (s *PlanStore) MarkJobsetApplied(ctx context.Context, name string, idx int, at time.Time) error {
	const maxRetries = 5
	baseDelay := 10 * time.Millisecond

	for retry := 0; retry < maxRetries; retry++ {
		u, err := s.client.Resource(balancePlanResource).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return fmt.Errorf("planhints: get %q: %w", name, err)
		}
		var plan clusterbalv1alpha1.BalancePlan
		if err := fromUnstructured(u, &plan); err != nil {
			return fmt.Errorf("planhints: decode %q: %w", name, err)
		}

		ts := metav1.NewTime(at)
		plan.Status.AppliedJobsets = append(plan.Status.AppliedJobsets, clusterbalv1alpha1.AppliedJobset{Index: idx, AppliedAt: &ts})

		updated, err := toUnstructured(&plan)
		if err != nil {
			return fmt.Errorf("planhints: encode %q: %w", name, err)
		}
		updated.SetResourceVersion(u.GetResourceVersion())

		_, err = s.client.Resource(balancePlanResource).Update(ctx, updated, metav1.UpdateOptions{})
		if err == nil {
			s.logger.V(2).Info("marked jobset applied", "name", name, "jobset", idx)
			return nil
		}
		if apierrors.IsConflict(err) {
			delay := baseDelay * time.Duration(1<<retry)
			s.logger.V(3).Info("update conflict, retrying", "name", name, "retry", retry+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		return fmt.Errorf("planhints: update %q: %w", name, err)
	}
	return fmt.Errorf("planhints: %q: exhausted retries after conflicts", name)
}

// Get fetches the current BalancePlan named name.
func (s *PlanStore) Get(ctx context.Context, name string) (clusterbalv1alpha1.BalancePlan, error) {
	u, err := s.client.Resource(balancePlanResource).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return clusterbalv1alpha1.BalancePlan{}, fmt.Errorf("planhints: get %q: %w", name, err)
	}
	var plan clusterbalv1alpha1.BalancePlan
	if err := fromUnstructured(u, &plan); err != nil {
		return clusterbalv1alpha1.BalancePlan{}, fmt.Errorf("planhints: decode %q: %w", name, err)
	}
	return plan, nil
}

func toUnstructured(plan *clusterbalv1alpha1.BalancePlan) (*unstructured.Unstructured, error) {
	m, err := runtime.DefaultUnstructuredConverter.ToUnstructured(plan)
	if err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: m}, nil
}

func fromUnstructured(u *unstructured.Unstructured, plan *clusterbalv1alpha1.BalancePlan) error {
	return runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, plan)
}

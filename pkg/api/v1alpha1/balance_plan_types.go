/*
Copyright 2024 The Kubernetes Authors.

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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +genclient
// +genclient:nonNamespaced
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// BalancePlan is a cluster-scoped resource holding one balancer/evacuation
// run's output: the ordered placement list and the jobset batching derived
// from it, published for an external job-submission system to consume.
type BalancePlan struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BalancePlanSpec   `json:"spec,omitempty"`
	Status BalancePlanStatus `json:"status,omitempty"`
}

// BalancePlanSpec defines the desired state of BalancePlan.
type BalancePlanSpec struct {
	// ClusterFingerprint identifies the node/instance snapshot this plan was
	// computed against, so a stale plan can be detected before it is applied.
	ClusterFingerprint string `json:"clusterFingerprint"`

	// InitialScore and FinalScore are the cluster-variance scores before and
	// after the placements in this plan are applied.
	InitialScore float64 `json:"initialScore"`
	FinalScore   float64 `json:"finalScore"`

	// Placements is the chronological placement list produced by the
	// balancer, evacuator, or iterative allocator.
	Placements []PlanPlacement `json:"placements"`

	// Jobsets groups Placements into maximal batches with pairwise-disjoint
	// involved-node sets, in submission order.
	Jobsets []PlanJobset `json:"jobsets,omitempty"`

	// ExpirationTime is when this plan should no longer be applied.
	ExpirationTime *metav1.Time `json:"expirationTime,omitempty"`
}

// PlanPlacement is one instance relocation within a BalancePlan.
type PlanPlacement struct {
	InstanceName string  `json:"instanceName"`
	Move         string  `json:"move"`
	OldPrimary   string  `json:"oldPrimary"`
	OldSecondary string  `json:"oldSecondary,omitempty"`
	NewPrimary   string  `json:"newPrimary"`
	NewSecondary string  `json:"newSecondary,omitempty"`
	Score        float64 `json:"score"`
}

// PlanJobset is one batch of jobs that may run in parallel against the
// external job system.
type PlanJobset struct {
	Jobs []string `json:"jobs"`
}

// BalancePlanStatus defines the observed state of BalancePlan.
type BalancePlanStatus struct {
	// AppliedJobsets tracks which jobsets have been submitted.
	AppliedJobsets []AppliedJobset `json:"appliedJobsets,omitempty"`
}

// AppliedJobset records that one jobset was handed to the job system.
type AppliedJobset struct {
	Index     int          `json:"index"`
	AppliedAt *metav1.Time `json:"appliedAt"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// BalancePlanList contains a list of BalancePlan.
type BalancePlanList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []BalancePlan `json:"items"`
}

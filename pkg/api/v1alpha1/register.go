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
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GroupName is the API group BalancePlan is registered under.
const GroupName = "clusterbal.hsalcedo.github.com"

// SchemeGroupVersion is the group/version used by every object in this package.
var SchemeGroupVersion = schema.GroupVersion{Group: GroupName, Version: "v1alpha1"}

var (
	SchemeBuilder = runtime.NewSchemeBuilder(addKnownTypes)
	AddToScheme   = SchemeBuilder.AddToScheme
)

func addKnownTypes(scheme *runtime.Scheme) error {
	scheme.AddKnownTypes(SchemeGroupVersion,
		&BalancePlan{},
		&BalancePlanList{},
	)
	metav1.AddToGroupVersion(scheme, SchemeGroupVersion)
	return nil
}

func (in *BalancePlan) DeepCopyObject() runtime.Object {
	out := new(BalancePlan)
	*out = *in
	out.ObjectMeta = *in.ObjectMeta.DeepCopy()
	out.Spec.Placements = append([]PlanPlacement(nil), in.Spec.Placements...)
	out.Spec.Jobsets = make([]PlanJobset, len(in.Spec.Jobsets))
	for i, js := range in.Spec.Jobsets {
		out.Spec.Jobsets[i] = PlanJobset{Jobs: append([]string(nil), js.Jobs...)}
	}
	out.Status.AppliedJobsets = append([]AppliedJobset(nil), in.Status.AppliedJobsets...)
	return out
}

func (in *BalancePlanList) DeepCopyObject() runtime.Object {
	out := new(BalancePlanList)
	*out = *in
	out.Items = make([]BalancePlan, len(in.Items))
	for i, item := range in.Items {
		out.Items[i] = *item.DeepCopyObject().(*BalancePlan)
	}
	return out
}

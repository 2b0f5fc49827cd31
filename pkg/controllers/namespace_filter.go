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

package controllers

import (
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

// NamespaceScope restricts the controller to a single namespace, or leaves
// every namespace in scope. It is intentionally the entire namespace
// filtering story: one flag, watched once at startup, not a per-object
// runtime policy engine.
type NamespaceScope struct {
	// Namespace is the single namespace to watch. Empty means every
	// namespace is in scope.
	Namespace string
}

// NewNamespaceScope builds a scope from the --namespace/--all-namespaces
// flag pair. allNamespaces takes precedence over a non-empty namespace.
func NewNamespaceScope(namespace string, allNamespaces bool) *NamespaceScope {
	if allNamespaces {
		return &NamespaceScope{}
	}
	return &NamespaceScope{Namespace: namespace}
}

// Allows reports whether ns is in scope.
func (s *NamespaceScope) Allows(ns string) bool {
	if s.Namespace == "" {
		return true
	}
	return ns == s.Namespace
}

// Predicate returns a controller-runtime predicate that drops events for
// objects outside the scope, so the manager never has to register a
// namespaced cache per watched namespace.
func (s *NamespaceScope) Predicate() predicate.Predicate {
	return predicate.NewPredicateFuncs(func(obj client.Object) bool {
		return s.Allows(obj.GetNamespace())
	})
}

// ListOption returns the client.ListOption that restricts a List call to
// this scope's namespace, or nil when every namespace is in scope.
func (s *NamespaceScope) ListOption() client.ListOption {
	if s.Namespace == "" {
		return nil
	}
	return client.InNamespace(s.Namespace)
}

// Package authz implements the role-based authorization decision engine for
// the tillstack POS backend.
//
// # Overview
//
// The package answers one question: may this principal perform this
// operation? It is built from three read-only pieces:
//
//  1. Registry: the process-wide role -> permission table and the
//     endpoint -> required-permission table, constructed once at start-up
//     and validated eagerly.
//  2. PathPolicy: classification of request paths into public, admin-only,
//     and statically excluded.
//  3. Engine: the predicate family (permission, role, hierarchy level,
//     ownership, department) evaluated against the registry.
//
// # Decisions, not errors
//
// Every check produces a Decision{Granted, Reason}. A "no" is a value, not
// an error: an unauthenticated caller, an empty role set, or an unknown
// role all evaluate to deny through the ordinary code path. The only errors
// this package returns are configuration errors at construction time, and
// those are fatal by contract.
//
// # Usage
//
//	registry, err := authz.NewRegistry(nil)
//	if err != nil {
//		log.Fatal(err) // broken tables must not serve traffic
//	}
//	engine := authz.NewEngine(registry)
//
//	d := engine.HasPermission(principal, "PRODUCTS_READ")
//	if !d.Granted {
//		// deny with d.Reason
//	}
//
// Both the request gatekeeper (pkg/middleware) and the method guard
// (pkg/guard) evaluate through the same Engine, so the two interception
// layers cannot disagree on the same predicate for the same principal.
package authz

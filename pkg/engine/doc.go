// Package engine implements the generic entity-reconciliation core for
// Foreman/Katello-style REST resources. It turns a declarative field spec into a
// wire-level entity spec, resolves name references against the server, and drives
// one entity from its current state to the desired state with the minimal set of
// create/update/delete calls: Normalize -> Resolve -> Reconcile.
package engine

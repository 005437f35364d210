// Package stores provides the persistence layer for the reconciliation
// journal. It includes SQLite-based storage with WAL mode, connection
// pooling, and CRUD operations for runs and their per-entry results.
package stores

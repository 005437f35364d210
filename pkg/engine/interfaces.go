package engine

import "context"

// Client is the API collaborator the engine issues calls through. It is a thin
// seam over a schema-described REST API; transport concerns such as
// authentication, pagination and caching live behind this interface.
//
// Any call may fail with a remote-call error carrying an HTTP-status-like code
// and message. The engine never retries; retry policy, if any, belongs to the
// implementation.
type Client interface {
	// List searches a resource collection. The search string uses the
	// server's search syntax (for example `name="web"`); an empty search
	// returns the whole scoped collection.
	List(ctx context.Context, resource, search string, scope Scope) ([]Record, error)

	// Show fetches one full record by id.
	Show(ctx context.Context, resource string, id int, scope Scope) (Record, error)

	// Create creates a record from a flat wire payload.
	Create(ctx context.Context, resource string, payload Record, scope Scope) (Record, error)

	// Update updates a record; the payload must contain the id.
	Update(ctx context.Context, resource string, payload Record, scope Scope) (Record, error)

	// Delete removes a record by id.
	Delete(ctx context.Context, resource string, id int, scope Scope) error

	// CallAction invokes a non-CRUD named action on a resource. The returned
	// record may be nil for actions that do not return an entity.
	CallAction(ctx context.Context, resource, action string, payload Record) (Record, error)
}

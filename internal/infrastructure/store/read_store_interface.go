package store

// Collections maintained by the projections.
const (
	CollectionReservations = "reservations"
	CollectionSlots        = "slots"
	CollectionUsers        = "users"
	CollectionHistory      = "history"
)

// ReadStoreInterface defines the interface for read model storage
type ReadStoreInterface interface {
	// Set stores a read model, replacing any existing entry with the same id.
	Set(collection, id string, data any) error

	// Get retrieves a read model by id
	Get(collection, id string) (any, bool, error)

	// GetAll retrieves all items in a collection
	GetAll(collection string) ([]any, error)

	// Delete removes a read model
	Delete(collection, id string) error

	// Update modifies a read model using an update function. Returns false
	// when no entry with the given id exists.
	Update(collection, id string, updateFn func(current any) any) (bool, error)
}

package services

import (
	"errors"

	"checkout-service/database"
	"checkout-service/repository"
)

// Business-rule failures recovered at the handler boundary and turned into
// structured responses; only unexpected errors (storage faults) surface as
// failed requests.
var (
	// ErrValidation covers malformed mutations: bad quantity, unknown item,
	// checkout on an empty or already-converted cart.
	ErrValidation = errors.New("validation failed")

	// ErrVersionConflict means the optimistic version check failed; the
	// caller refetches the cart and retries.
	ErrVersionConflict = database.ErrVersionConflict

	// ErrProductUnavailable rejects a mutation whose product the catalog
	// marks inactive or out of stock. Nothing is persisted.
	ErrProductUnavailable = errors.New("product unavailable")

	// ErrCartLocked rejects mutations while a checkout is in flight.
	ErrCartLocked = errors.New("cart is locked for checkout")

	ErrOrderNotFound = repository.ErrOrderNotFound

	// ErrGatewayRejected is a terminal gateway failure for this attempt.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")

	// ErrGatewayUnavailable is transient: the order is left retryable.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

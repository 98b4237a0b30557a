package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

// UserStore is the narrow identity lookup the engine depends on.
// Implementations return model.ErrNotFound for unknown ids.
type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Authorizer centralizes the role and ownership checks shared by the booking
// operations so they cannot drift between call sites.
type Authorizer struct {
	users UserStore
}

func NewAuthorizer(users UserStore) *Authorizer {
	return &Authorizer{users: users}
}

// CanBook validates that providerID names a provider-role user and
// requesterID a requester-role user, returning both. A role mismatch on
// either id is an invalid argument; ErrForbidden is reserved for actors who
// are not a party to a booking.
func (a *Authorizer) CanBook(ctx context.Context, providerID, requesterID string) (provider, requester model.User, err error) {
	provider, err = a.users.GetByID(ctx, providerID)
	if err != nil {
		return model.User{}, model.User{}, fmt.Errorf("provider %s: %w", providerID, err)
	}
	if provider.Role != model.RoleProvider {
		return model.User{}, model.User{}, fmt.Errorf("%w: %s is not a provider", model.ErrInvalidArgument, providerID)
	}

	requester, err = a.users.GetByID(ctx, requesterID)
	if err != nil {
		return model.User{}, model.User{}, fmt.Errorf("requester %s: %w", requesterID, err)
	}
	if requester.Role != model.RoleRequester {
		return model.User{}, model.User{}, fmt.Errorf("%w: %s is not a requester", model.ErrInvalidArgument, requesterID)
	}
	return provider, requester, nil
}

// CanCancel validates that actorID is a party to the booking. An unknown
// actor is indistinguishable from a non-party on purpose.
func (a *Authorizer) CanCancel(ctx context.Context, actorID string, b model.Booking) (model.User, error) {
	actor, err := a.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, fmt.Errorf("%w: actor is not a party to the booking", model.ErrForbidden)
		}
		return model.User{}, err
	}
	if actor.ID != b.ProviderID && actor.ID != b.RequesterID {
		return model.User{}, fmt.Errorf("%w: actor is not a party to the booking", model.ErrForbidden)
	}
	return actor, nil
}

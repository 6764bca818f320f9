package identity

import (
	"fmt"
	"net/http"
	"strings"

	corechat_errors "corechat/pkg/errors"

	"github.com/google/uuid"
)

// Trust headers forwarded by an authenticated upstream edge.
const (
	HeaderUserID         = "X-User-Id"
	HeaderOrganizationID = "X-Organization-Id"
	HeaderUserName       = "X-User-Name"
	HeaderUserEmail      = "X-User-Email"
)

// HeaderResolver trusts identity fields set by an upstream edge that already
// authenticated the caller. Requests missing the mandatory fields are
// rejected as invalid input (400 class).
type HeaderResolver struct{}

func NewHeaderResolver() *HeaderResolver {
	return &HeaderResolver{}
}

func (hr *HeaderResolver) Resolve(r *http.Request) (Actor, error) {
	rawUser := strings.TrimSpace(r.Header.Get(HeaderUserID))
	rawOrg := strings.TrimSpace(r.Header.Get(HeaderOrganizationID))
	if rawUser == "" || rawOrg == "" {
		return Actor{}, fmt.Errorf("missing identity headers: %w", corechat_errors.ErrInvalidInput)
	}

	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid %s: %w", HeaderUserID, corechat_errors.ErrInvalidInput)
	}
	orgID, err := uuid.Parse(rawOrg)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid %s: %w", HeaderOrganizationID, corechat_errors.ErrInvalidInput)
	}

	return Actor{
		UserID:         userID,
		UserName:       strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Email:          strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		OrganizationID: orgID,
	}, nil
}

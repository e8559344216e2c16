package transport

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

// Headers set by the authenticating gateway in front of this service.
const (
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
	headerUserRole  = "X-User-Role"
)

var errUnauthenticated = errors.New("authentication required")

func actorFromRequest(r *http.Request) (model.Actor, error) {
	raw := strings.TrimSpace(r.Header.Get(headerUserID))
	if raw == "" {
		return model.Actor{}, errUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return model.Actor{}, errUnauthenticated
	}
	role := model.RoleUser
	if strings.EqualFold(strings.TrimSpace(r.Header.Get(headerUserRole)), string(model.RoleAdmin)) {
		role = model.RoleAdmin
	}
	return model.Actor{
		ID:    id,
		Email: strings.TrimSpace(r.Header.Get(headerUserEmail)),
		Name:  strings.TrimSpace(r.Header.Get(headerUserName)),
		Role:  role,
	}, nil
}

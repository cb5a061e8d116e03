// Package authz реализует проверку прав участника перед каждой операцией.
package authz

import (
	"context"
	"strings"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/model"
)

// Principal: участник, от имени которого выполняется запрос.
type Principal struct {
	Subject string
	Role    model.Role
}

// Anonymous: участник без идентификации.
var Anonymous = Principal{}

var (
	errUnauthenticated = apperr.New(apperr.KindUnauthenticated, "authentication required")
	errForbidden       = apperr.New(apperr.KindForbidden, "operation not permitted for this role")
)

// Authenticate проверяет, что участник распознан. Выполняется до проверок ролей.
func Authenticate(p Principal) error {
	if strings.TrimSpace(p.Subject) == "" || !p.Role.Valid() {
		return errUnauthenticated
	}
	return nil
}

// IsOrganizer сообщает, что участник является распознанным организатор.
func IsOrganizer(p Principal) bool {
	return Authenticate(p) == nil && p.Role == model.RoleOrganizer
}

// HasAnyRole сообщает, что роль участника входит в перечисленные.
func HasAnyRole(p Principal, roles ...model.Role) bool {
	if Authenticate(p) != nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// RequireRole разрешает операцию только перечисленным ролям.
func RequireRole(p Principal, roles ...model.Role) error {
	if err := Authenticate(p); err != nil {
		return err
	}
	if !HasAnyRole(p, roles...) {
		return errForbidden
	}
	return nil
}

// RequireOrganizer разрешает операцию только организатору.
func RequireOrganizer(p Principal) error {
	if err := RequireRole(p, model.RoleOrganizer); err != nil {
		if apperr.Is(err, apperr.KindForbidden) {
			return apperr.New(apperr.KindForbidden, "only organizers may perform this operation")
		}
		return err
	}
	return nil
}

// RequireSelfOrOrganizer разрешает операцию самому участнику subject или организатору.
func RequireSelfOrOrganizer(p Principal, subject string) error {
	if err := Authenticate(p); err != nil {
		return err
	}
	if p.Role == model.RoleOrganizer || p.Subject == subject {
		return nil
	}
	return apperr.New(apperr.KindForbidden, "cannot act on behalf of another participant")
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal сохраняет участника в контексте запроса.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext извлекает участника из контекста запроса.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/model"
)

var (
	organizer = Principal{Subject: "org-1", Role: model.RoleOrganizer}
	business  = Principal{Subject: "biz-1", Role: model.RoleBusiness}
	volunteer = Principal{Subject: "vol-A", Role: model.RoleVolunteer}
)

func TestAuthenticate(t *testing.T) {
	assert.NoError(t, Authenticate(volunteer))
	assert.True(t, apperr.Is(Authenticate(Anonymous), apperr.KindUnauthenticated))
	assert.True(t, apperr.Is(Authenticate(Principal{Subject: "  ", Role: model.RoleVolunteer}), apperr.KindUnauthenticated))
	assert.True(t, apperr.Is(Authenticate(Principal{Subject: "x", Role: "admin"}), apperr.KindUnauthenticated))
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, RequireRole(business, model.RoleBusiness, model.RoleOrganizer))
	assert.True(t, apperr.Is(RequireRole(volunteer, model.RoleBusiness), apperr.KindForbidden))
	assert.True(t, apperr.Is(RequireRole(Anonymous, model.RoleBusiness), apperr.KindUnauthenticated))
}

func TestRequireOrganizer(t *testing.T) {
	assert.NoError(t, RequireOrganizer(organizer))

	for _, p := range []Principal{business, volunteer, {Subject: "i", Role: model.RoleIndividual}, {Subject: "d", Role: model.RoleDistributor}} {
		err := RequireOrganizer(p)
		require.Error(t, err, p.Role)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), p.Role)
	}

	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(RequireOrganizer(Anonymous)))
}

func TestRequireSelfOrOrganizer(t *testing.T) {
	assert.NoError(t, RequireSelfOrOrganizer(volunteer, "vol-A"))
	assert.NoError(t, RequireSelfOrOrganizer(organizer, "vol-A"))
	assert.True(t, apperr.Is(RequireSelfOrOrganizer(volunteer, "vol-B"), apperr.KindForbidden))
	assert.True(t, apperr.Is(RequireSelfOrOrganizer(Anonymous, "vol-A"), apperr.KindUnauthenticated))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), volunteer)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, volunteer, got)
	assert.True(t, HasAnyRole(got, model.RoleVolunteer))
	assert.False(t, IsOrganizer(got))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("delivered").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Picked Up", StatusPickedUp.Label())
	assert.Equal(t, "Available", StatusAvailable.Label())
	assert.Equal(t, "Unknown", Status("").Label())
	assert.Equal(t, "Weird", Status("weird").Label())
}

func TestRoleDonorKind(t *testing.T) {
	tests := []struct {
		role    Role
		kind    DonorKind
		isDonor bool
	}{
		{RoleIndividual, DonorIndividual, true},
		{RoleBusiness, DonorBusiness, true},
		{RoleDistributor, DonorDistributor, true},
		{RoleVolunteer, "", false},
		{RoleOrganizer, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			kind, ok := tt.role.DonorKind()
			assert.Equal(t, tt.isDonor, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.isDonor, tt.role.IsDonor())
			assert.True(t, tt.role.Valid())
		})
	}

	assert.False(t, Role("admin").Valid())
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryProduce.Valid())
	assert.True(t, CategoryOther.Valid())
	assert.False(t, Category("seafood").Valid())
}

func TestBoundVolunteer(t *testing.T) {
	var nilDonation *Donation
	assert.Equal(t, "", nilDonation.BoundVolunteer())

	v := "vol-A"
	d := &Donation{VolunteerID: &v}
	assert.Equal(t, "vol-A", d.BoundVolunteer())
	assert.Equal(t, "", (&Donation{}).BoundVolunteer())
}

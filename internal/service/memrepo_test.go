package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/foodrescue/internal/lifecycle"
	"github.com/mmeshcher/foodrescue/internal/model"
	"github.com/mmeshcher/foodrescue/internal/repository"
)

// memRepo: хранилище в памяти с теми же условными обновлениями, что и у настоящих репозиториев.
type memRepo struct {
	mu        sync.Mutex
	seq       int
	clock     time.Time
	donations map[string]*model.Donation

	failWith error
}

func newMemRepo() *memRepo {
	return &memRepo{
		clock:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		donations: map[string]*model.Donation{},
	}
}

func clone(d *model.Donation) *model.Donation {
	c := *d
	if d.VolunteerID != nil {
		v := *d.VolunteerID
		c.VolunteerID = &v
	}
	if d.DestinationID != nil {
		v := *d.DestinationID
		c.DestinationID = &v
	}
	return &c
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateDonation(_ context.Context, nd model.NewDonation) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	m.seq++
	m.clock = m.clock.Add(time.Minute)
	d := &model.Donation{
		ID:                 fmt.Sprintf("don-%d", m.seq),
		DonorID:            nd.DonorID,
		DonorKind:          nd.DonorKind,
		ItemName:           nd.ItemName,
		Category:           nd.Category,
		Quantity:           nd.Quantity,
		Description:        nd.Description,
		PickupInstructions: nd.PickupInstructions,
		ExpiresAt:          nd.ExpiresAt,
		EstimatedValue:     nd.EstimatedValue,
		Impact:             nd.Impact,
		Status:             lifecycle.Initial,
		CreatedAt:          m.clock,
	}
	m.donations[d.ID] = d
	return clone(d), nil
}

func (m *memRepo) GetDonation(_ context.Context, id string) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, repository.ErrDonationNotFound
	}
	return clone(d), nil
}

func matches(d *model.Donation, f model.DonationFilter) bool {
	if f.DonorID != "" && d.DonorID != f.DonorID {
		return false
	}
	if f.VolunteerID != "" && d.BoundVolunteer() != f.VolunteerID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if d.Status == s {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.CreatedFrom != nil && d.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && d.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func (m *memRepo) ListDonations(_ context.Context, f model.DonationFilter) ([]model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var res []model.Donation
	for _, d := range m.donations {
		if matches(d, f) {
			res = append(res, *clone(d))
		}
	}

	sort.Slice(res, func(i, j int) bool {
		switch f.Sort {
		case model.OldestFirst:
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		case model.LatestDeliveryFirst:
			a, b := res[i].DeliveredAt, res[j].DeliveredAt
			if a != nil && b != nil && !a.Equal(*b) {
				return a.After(*b)
			}
			return res[i].CreatedAt.After(res[j].CreatedAt)
		default:
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
	})

	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (m *memRepo) CountDonations(ctx context.Context, f model.DonationFilter) (int64, error) {
	res, err := m.ListDonations(ctx, f)
	return int64(len(res)), err
}

func (m *memRepo) ScheduledVolunteers(_ context.Context, donorID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	seen := map[string]bool{}
	var res []string
	for _, d := range m.donations {
		v := d.BoundVolunteer()
		if d.DonorID == donorID && d.Status == lifecycle.Pickup.From && v != "" && !seen[v] {
			seen[v] = true
			res = append(res, v)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (m *memRepo) updateOne(id string, cond func(*model.Donation) bool, apply func(*model.Donation)) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	d, ok := m.donations[id]
	if !ok || !cond(d) {
		return nil, repository.ErrConditionFailed
	}
	apply(d)
	return clone(d), nil
}

func (m *memRepo) AssignVolunteer(_ context.Context, id, volunteerID string) (*model.Donation, error) {
	return m.updateOne(id,
		func(d *model.Donation) bool { return d.Status == lifecycle.Assign.From },
		func(d *model.Donation) {
			d.Status = lifecycle.Assign.To
			d.VolunteerID = &volunteerID
		})
}

func (m *memRepo) ReleaseVolunteer(_ context.Context, id, volunteerID string) (*model.Donation, error) {
	return m.updateOne(id,
		func(d *model.Donation) bool {
			return d.Status == lifecycle.Cancel.From && d.BoundVolunteer() == volunteerID
		},
		func(d *model.Donation) {
			d.Status = lifecycle.Cancel.To
			d.VolunteerID = nil
		})
}

func (m *memRepo) MarkPickedUp(_ context.Context, donorID, volunteerID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}

	var n int64
	for _, d := range m.donations {
		if d.DonorID == donorID && d.BoundVolunteer() == volunteerID && d.Status == lifecycle.Pickup.From {
			d.Status = lifecycle.Pickup.To
			ts := at
			d.PickupAt = &ts
			n++
		}
	}
	return n, nil
}

func (m *memRepo) MarkCompleted(_ context.Context, id, volunteerID, destinationID string, at time.Time) (*model.Donation, error) {
	return m.updateOne(id,
		func(d *model.Donation) bool {
			return d.Status == lifecycle.Complete.From && d.BoundVolunteer() == volunteerID
		},
		func(d *model.Donation) {
			d.Status = lifecycle.Complete.To
			d.DestinationID = &destinationID
			ts := at
			d.DeliveredAt = &ts
		})
}

func (m *memRepo) Withdraw(_ context.Context, id string) (*model.Donation, error) {
	return m.updateOne(id,
		func(d *model.Donation) bool { return d.Status == lifecycle.Withdraw.From },
		func(d *model.Donation) { d.Status = lifecycle.Withdraw.To })
}

func (m *memRepo) DeleteDonation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.donations[id]; !ok {
		return repository.ErrDonationNotFound
	}
	delete(m.donations, id)
	return nil
}

// snapshot возвращает копию записи для сравнения «до» и «после».
func (m *memRepo) snapshot(id string) model.Donation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *clone(m.donations[id])
}

var errStoreDown = errors.New("connection refused")

package service

import (
	"context"
	"math"

	"github.com/mmeshcher/foodrescue/internal/authz"
	"github.com/mmeshcher/foodrescue/internal/model"
	"github.com/mmeshcher/foodrescue/internal/validation"
)

const recentDonationsLimit = 10

// VolunteerScheduled возвращает запланированные и забранные волонтёром пожертвования, начиная со старых.
func (s *Service) VolunteerScheduled(ctx context.Context, p authz.Principal, volunteerID string) ([]model.Donation, error) {
	if err := authz.RequireSelfOrOrganizer(p, volunteerID); err != nil {
		return nil, err
	}
	return s.list(ctx, "list volunteer scheduled", model.DonationFilter{
		VolunteerID: volunteerID,
		Statuses:    []model.Status{model.StatusScheduled, model.StatusPickedUp},
		Sort:        model.OldestFirst,
	})
}

// VolunteerCompleted возвращает доставленные волонтёром пожертвования, начиная с последней доставки.
func (s *Service) VolunteerCompleted(ctx context.Context, p authz.Principal, volunteerID string) ([]model.Donation, error) {
	if err := authz.RequireSelfOrOrganizer(p, volunteerID); err != nil {
		return nil, err
	}
	return s.list(ctx, "list volunteer completed", completedBy(volunteerID))
}

// VolunteerCompletedCount возвращает число доставок волонтёра.
func (s *Service) VolunteerCompletedCount(ctx context.Context, p authz.Principal, volunteerID string) (int64, error) {
	if err := authz.RequireSelfOrOrganizer(p, volunteerID); err != nil {
		return 0, err
	}
	n, err := s.repo.CountDonations(ctx, completedBy(volunteerID))
	if err != nil {
		return 0, storeErr("count volunteer completed", err)
	}
	return n, nil
}

func completedBy(volunteerID string) model.DonationFilter {
	return model.DonationFilter{
		VolunteerID: volunteerID,
		Statuses:    []model.Status{model.StatusCompleted},
		Sort:        model.LatestDeliveryFirst,
	}
}

// SupplierListed возвращает опубликованные поставщиком пожертвования, ещё не переданные волонтёру.
func (s *Service) SupplierListed(ctx context.Context, p authz.Principal, supplierID string) ([]model.Donation, error) {
	if err := authz.RequireSelfOrOrganizer(p, supplierID); err != nil {
		return nil, err
	}
	return s.list(ctx, "list supplier donations", model.DonationFilter{
		DonorID:  supplierID,
		Statuses: []model.Status{model.StatusAvailable, model.StatusScheduled},
		Sort:     model.NewestFirst,
	})
}

// Receipts формирует квитанцию донора за период.
// По умолчанию учитываются только завершённые пожертвования.
func (s *Service) Receipts(ctx context.Context, p authz.Principal, supplierID string, q model.ReceiptQuery) (*model.Receipt, error) {
	if err := authz.RequireSelfOrOrganizer(p, supplierID); err != nil {
		return nil, err
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, invalid("endDate must not be before startDate")
	}

	f := model.DonationFilter{DonorID: supplierID, CreatedFrom: q.From, Sort: model.NewestFirst}
	if q.To != nil {
		end := validation.EndOfDay(*q.To)
		f.CreatedTo = &end
	}
	if !q.All {
		f.Statuses = []model.Status{model.StatusCompleted}
	}

	donations, err := s.list(ctx, "build receipt", f)
	if err != nil {
		return nil, err
	}

	receipt := &model.Receipt{
		DonorID:    supplierID,
		Donations:  make([]model.ReceiptLine, 0, len(donations)),
		Disclaimer: model.ReceiptDisclaimer,
		Summary: model.ReceiptSummary{
			TotalDonations: len(donations),
			StartDate:      "Start of records",
			EndDate:        "End of records",
			GeneratedAt:    s.now(),
		},
	}
	if q.From != nil {
		receipt.Summary.StartDate = q.From.Format(validation.DateLayout)
	}
	if q.To != nil {
		receipt.Summary.EndDate = q.To.Format(validation.DateLayout)
	}

	var co2 float64
	for _, d := range donations {
		receipt.Donations = append(receipt.Donations, model.ReceiptLine{
			ID:             d.ID,
			Date:           d.CreatedAt,
			ItemName:       d.ItemName,
			Category:       d.Category,
			Quantity:       d.Quantity,
			Status:         d.Status.Label(),
			EstimatedValue: d.EstimatedValue,
			MealsSaved:     d.Impact.MealsSaved,
			CO2Avoided:     d.Impact.CO2Avoided,
		})
		if d.Status == model.StatusCompleted {
			receipt.Summary.TotalEstimatedValue += d.EstimatedValue
		}
		receipt.Summary.TotalMealsSaved += d.Impact.MealsSaved
		co2 += d.Impact.CO2Avoided
	}
	receipt.Summary.TotalCO2Avoided = roundTenth(co2)

	return receipt, nil
}

// SupplierOverview возвращает сводку по пожертвованиям поставщика.
func (s *Service) SupplierOverview(ctx context.Context, p authz.Principal, supplierID string) (*model.SupplierOverview, error) {
	if err := authz.RequireSelfOrOrganizer(p, supplierID); err != nil {
		return nil, err
	}

	donations, err := s.list(ctx, "build supplier overview", model.DonationFilter{
		DonorID: supplierID,
		Sort:    model.NewestFirst,
	})
	if err != nil {
		return nil, err
	}

	overview := &model.SupplierOverview{
		DonatedItems: len(donations),
		Recent:       make([]model.RecentDonation, 0, min(len(donations), recentDonationsLimit)),
	}

	var co2 float64
	for i, d := range donations {
		if d.Status == model.StatusAvailable || d.Status == model.StatusScheduled {
			overview.UpcomingPickups++
		}
		overview.Impact.TotalMealsSaved += d.Impact.MealsSaved
		co2 += d.Impact.CO2Avoided

		if i < recentDonationsLimit {
			quantity := d.Quantity
			if quantity == "" {
				quantity = "Not specified"
			}
			overview.Recent = append(overview.Recent, model.RecentDonation{
				ID:         d.ID,
				Name:       d.ItemName,
				Quantity:   quantity,
				Date:       d.CreatedAt,
				Status:     d.Status.Label(),
				Category:   d.Category,
				MealsSaved: d.Impact.MealsSaved,
				CO2Avoided: d.Impact.CO2Avoided,
			})
		}
	}
	overview.Impact.TotalCO2Avoided = roundTenth(co2)

	return overview, nil
}

// Dashboard группирует все пожертвования по состояниям. Доступно только организатору.
func (s *Service) Dashboard(ctx context.Context, p authz.Principal) (*model.Dashboard, error) {
	if err := authz.RequireOrganizer(p); err != nil {
		return nil, err
	}

	donations, err := s.list(ctx, "build dashboard", model.DonationFilter{Sort: model.NewestFirst})
	if err != nil {
		return nil, err
	}

	dash := &model.Dashboard{
		Available: []model.Donation{},
		Scheduled: []model.Donation{},
		PickedUp:  []model.Donation{},
		Completed: []model.Donation{},
		Cancelled: []model.Donation{},
	}
	for _, d := range donations {
		switch d.Status {
		case model.StatusAvailable:
			dash.Available = append(dash.Available, d)
		case model.StatusScheduled:
			dash.Scheduled = append(dash.Scheduled, d)
		case model.StatusPickedUp:
			dash.PickedUp = append(dash.PickedUp, d)
		case model.StatusCompleted:
			dash.Completed = append(dash.Completed, d)
		case model.StatusCancelled:
			dash.Cancelled = append(dash.Cancelled, d)
		}
	}

	return dash, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/authz"
	"github.com/mmeshcher/foodrescue/internal/lifecycle"
	"github.com/mmeshcher/foodrescue/internal/metrics"
	"github.com/mmeshcher/foodrescue/internal/model"
)

// CreateDonation размещает новое пожертвование.
// Донор размещает пожертвование от своего имени, организатор указывает донора явно.
func (s *Service) CreateDonation(ctx context.Context, p authz.Principal, nd model.NewDonation) (*model.Donation, error) {
	if err := authz.Authenticate(p); err != nil {
		return nil, err
	}

	nd.DonorID = strings.TrimSpace(nd.DonorID)
	nd.ItemName = strings.TrimSpace(nd.ItemName)

	switch {
	case p.Role.IsDonor():
		if nd.DonorID != "" && nd.DonorID != p.Subject {
			return nil, apperr.New(apperr.KindForbidden, "cannot list donations on behalf of another donor")
		}
		kind, _ := p.Role.DonorKind()
		if nd.DonorKind != "" && nd.DonorKind != kind {
			return nil, invalid("donorKind %q does not match caller role %q", nd.DonorKind, p.Role)
		}
		nd.DonorID = p.Subject
		nd.DonorKind = kind
	case p.Role == model.RoleOrganizer:
		if nd.DonorID == "" {
			return nil, invalid("donorId is required when listing on behalf of a donor")
		}
		if !nd.DonorKind.Valid() {
			return nil, invalid("donorKind must be one of Individual, Business, Distributor")
		}
	default:
		return nil, apperr.New(apperr.KindForbidden, "only donors and organizers may list donations")
	}

	if nd.ItemName == "" {
		return nil, invalid("itemName is required")
	}
	if !nd.Category.Valid() {
		return nil, invalid("unknown category %q", nd.Category)
	}
	if nd.EstimatedValue < 0 || nd.Impact.MealsSaved < 0 || nd.Impact.CO2Avoided < 0 {
		return nil, invalid("estimatedValue and impact estimates must be non-negative")
	}

	d, err := s.repo.CreateDonation(ctx, nd)
	if err != nil {
		return nil, storeErr("create donation", err)
	}

	s.logger.Info("donation created",
		zap.String("donation_id", d.ID),
		zap.String("donor_id", d.DonorID),
		zap.String("category", string(d.Category)),
	)
	return d, nil
}

// ListAvailable возвращает доступные пожертвования, начиная с новых.
func (s *Service) ListAvailable(ctx context.Context, p authz.Principal) ([]model.Donation, error) {
	if err := authz.Authenticate(p); err != nil {
		return nil, err
	}
	return s.list(ctx, "list available", model.DonationFilter{
		Statuses: []model.Status{model.StatusAvailable},
		Sort:     model.NewestFirst,
	})
}

// GetDonation возвращает пожертвование по идентификатору.
func (s *Service) GetDonation(ctx context.Context, p authz.Principal, id string) (*model.Donation, error) {
	if err := authz.Authenticate(p); err != nil {
		return nil, err
	}
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, storeErr("get donation", err)
	}
	return d, nil
}

// AssignVolunteer назначает волонтёра на доступное пожертвование.
// Волонтёр может не указывать идентификатор: тогда назначается он сам.
func (s *Service) AssignVolunteer(ctx context.Context, p authz.Principal, id, volunteerID string) (d *model.Donation, err error) {
	defer func() { metrics.ObserveTransition(lifecycle.Assign.Name, err) }()

	if err := authz.Authenticate(p); err != nil {
		return nil, err
	}

	volunteerID = strings.TrimSpace(volunteerID)
	if volunteerID == "" && p.Role == model.RoleVolunteer {
		volunteerID = p.Subject
	}
	if volunteerID == "" {
		return nil, invalid("volunteerId is required")
	}

	op := opName(lifecycle.Assign)
	d, err = s.repo.AssignVolunteer(ctx, id, volunteerID)
	if err != nil {
		return nil, s.transitionErr(ctx, op, id, lifecycle.Assign, "", err)
	}

	s.logger.Info("volunteer assigned",
		zap.String("donation_id", d.ID),
		zap.String("volunteer_id", volunteerID),
		zap.String("by", p.Subject),
	)
	return d, nil
}

// CancelAssignment снимает назначение. Доступно только назначенному волонтёру.
func (s *Service) CancelAssignment(ctx context.Context, p authz.Principal, id string) (d *model.Donation, err error) {
	defer func() { metrics.ObserveTransition(lifecycle.Cancel.Name, err) }()

	if err := authz.Authenticate(p); err != nil {
		return nil, err
	}

	op := opName(lifecycle.Cancel)
	d, err = s.repo.ReleaseVolunteer(ctx, id, p.Subject)
	if err != nil {
		return nil, s.transitionErr(ctx, op, id, lifecycle.Cancel, p.Subject, err)
	}

	s.logger.Info("assignment cancelled",
		zap.String("donation_id", d.ID),
		zap.String("volunteer_id", p.Subject),
	)
	return d, nil
}

// WithdrawDonation снимает невостребованное пожертвование с публикации.
func (s *Service) WithdrawDonation(ctx context.Context, p authz.Principal, id string) (d *model.Donation, err error) {
	defer func() { metrics.ObserveTransition(lifecycle.Withdraw.Name, err) }()

	if err := authz.Authenticate(p); err != nil {
		return nil, err
	}

	op := opName(lifecycle.Withdraw)

	// donorId неизменен, поэтому проверка владения по предварительному чтению безопасна.
	current, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if err := authz.RequireSelfOrOrganizer(p, current.DonorID); err != nil {
		return nil, err
	}

	d, err = s.repo.Withdraw(ctx, id)
	if err != nil {
		return nil, s.transitionErr(ctx, op, id, lifecycle.Withdraw, "", err)
	}

	s.logger.Info("donation withdrawn", zap.String("donation_id", d.ID), zap.String("by", p.Subject))
	return d, nil
}

// CompleteDelivery фиксирует доставку получателю.
// Волонтёр завершает только свои доставки, организатор указывает волонтёра явно.
func (s *Service) CompleteDelivery(ctx context.Context, p authz.Principal, id, volunteerID, destinationID string) (d *model.Donation, err error) {
	defer func() { metrics.ObserveTransition(lifecycle.Complete.Name, err) }()

	if err := authz.RequireRole(p, model.RoleVolunteer, model.RoleOrganizer); err != nil {
		return nil, err
	}

	volunteerID = strings.TrimSpace(volunteerID)
	if p.Role == model.RoleVolunteer {
		if volunteerID != "" && volunteerID != p.Subject {
			return nil, apperr.New(apperr.KindForbidden, "volunteers may only complete their own deliveries")
		}
		volunteerID = p.Subject
	}
	if volunteerID == "" {
		return nil, invalid("volunteerId is required")
	}

	destinationID = strings.TrimSpace(destinationID)
	if destinationID == "" {
		destinationID = s.opts.DefaultDestinationID
	}
	if destinationID == "" {
		return nil, invalid("destinationId is required")
	}

	op := opName(lifecycle.Complete)
	d, err = s.repo.MarkCompleted(ctx, id, volunteerID, destinationID, s.now())
	if err != nil {
		return nil, s.transitionErr(ctx, op, id, lifecycle.Complete, volunteerID, err)
	}

	s.logger.Info("delivery completed",
		zap.String("donation_id", d.ID),
		zap.String("volunteer_id", volunteerID),
		zap.String("destination_id", destinationID),
	)
	return d, nil
}

// DeleteDonation удаляет пожертвование в любом состоянии. Доступно только организатору.
func (s *Service) DeleteDonation(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.RequireOrganizer(p); err != nil {
		return err
	}

	if err := s.repo.DeleteDonation(ctx, id); err != nil {
		return storeErr("delete donation", err)
	}

	s.logger.Info("donation deleted", zap.String("donation_id", id), zap.String("by", p.Subject))
	return nil
}

func (s *Service) list(ctx context.Context, op string, f model.DonationFilter) ([]model.Donation, error) {
	res, err := s.repo.ListDonations(ctx, f)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if res == nil {
		res = []model.Donation{}
	}
	return res, nil
}

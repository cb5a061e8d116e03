package service

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/authz"
	"github.com/mmeshcher/foodrescue/internal/handoff"
	"github.com/mmeshcher/foodrescue/internal/lifecycle"
	"github.com/mmeshcher/foodrescue/internal/metrics"
	"github.com/mmeshcher/foodrescue/internal/model"
	"github.com/mmeshcher/foodrescue/internal/validation"
)

// PickupCredential: предъявленное волонтёром подтверждение: код или отсканированный идентификатор.
// Должно быть заполнено ровно одно поле.
type PickupCredential struct {
	Code               string
	ScannedVolunteerID string
}

var (
	errNoScheduledPickups = apperr.New(apperr.KindNotFound, "no scheduled pickups for this supplier")
	errNothingToPickUp    = apperr.New(apperr.KindNotFound, "no scheduled donations for this volunteer at this supplier")
)

// ConfirmPickup определяет волонтёра по предъявленному подтверждению и одним условным
// обновлением переводит все его запланированные пожертвования у поставщика в picked_up.
func (s *Service) ConfirmPickup(ctx context.Context, p authz.Principal, supplierID string, cred PickupCredential) (res *model.PickupResult, err error) {
	defer func() { metrics.ObserveTransition(lifecycle.Pickup.Name, err) }()

	if err := authz.RequireSelfOrOrganizer(p, supplierID); err != nil {
		return nil, err
	}

	volunteerID, err := s.resolveVolunteer(ctx, supplierID, cred)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.MarkPickedUp(ctx, supplierID, volunteerID, s.now())
	if err != nil {
		return nil, storeErr("confirm pickup", err)
	}
	if n == 0 {
		return nil, errNothingToPickUp
	}

	metrics.ObservePickedUp(n)
	s.logger.Info("pickup confirmed",
		zap.String("supplier_id", supplierID),
		zap.String("volunteer_id", volunteerID),
		zap.Int64("donations", n),
	)

	return &model.PickupResult{VolunteerID: volunteerID, ModifiedCount: n}, nil
}

func (s *Service) resolveVolunteer(ctx context.Context, supplierID string, cred PickupCredential) (string, error) {
	switch {
	case cred.Code != "" && cred.ScannedVolunteerID != "":
		return "", invalid("provide either confirmationCode or scannedVolunteerId, not both")
	case cred.Code != "":
		return s.resolveByCode(ctx, supplierID, cred.Code)
	case cred.ScannedVolunteerID != "":
		return s.resolveByScan(ctx, supplierID, cred.ScannedVolunteerID)
	}
	return "", invalid("either confirmationCode or scannedVolunteerId is required")
}

func (s *Service) resolveByCode(ctx context.Context, supplierID, code string) (string, error) {
	if !validation.IsValidPickupCode(code) {
		return "", invalid("confirmationCode must be exactly %d digits", validation.PickupCodeLength)
	}

	candidates, err := s.candidates(ctx, supplierID)
	if err != nil {
		return "", err
	}

	id, ok := handoff.Match(code, candidates)
	if !ok {
		s.logger.Warn("pickup code did not match", zap.String("supplier_id", supplierID), zap.Int("candidates", len(candidates)))
		return "", ErrInvalidCredential
	}
	return id, nil
}

func (s *Service) resolveByScan(ctx context.Context, supplierID, scanned string) (string, error) {
	scanned = strings.TrimSpace(scanned)
	if scanned == "" {
		return "", invalid("scannedVolunteerId must not be blank")
	}

	if !s.opts.ScanCrossCheck {
		return scanned, nil
	}

	candidates, err := s.candidates(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if !slices.Contains(candidates, scanned) {
		s.logger.Warn("scanned volunteer is not scheduled at supplier", zap.String("supplier_id", supplierID))
		return "", ErrInvalidCredential
	}
	return scanned, nil
}

// candidates возвращает волонтёров, назначенных на запланированные пожертвования поставщика.
func (s *Service) candidates(ctx context.Context, supplierID string) ([]string, error) {
	ids, err := s.repo.ScheduledVolunteers(ctx, supplierID)
	if err != nil {
		return nil, storeErr("load scheduled volunteers", err)
	}
	if len(ids) == 0 {
		return nil, errNoScheduledPickups
	}
	return ids, nil
}

// PickupCode возвращает код подтверждения передачи для волонтёра.
func (s *Service) PickupCode(_ context.Context, p authz.Principal, volunteerID string) (string, error) {
	if err := authz.RequireSelfOrOrganizer(p, volunteerID); err != nil {
		return "", err
	}
	if !authz.IsOrganizer(p) && p.Role != model.RoleVolunteer {
		return "", apperr.New(apperr.KindForbidden, "pickup codes are issued to volunteers only")
	}
	if validation.IsBlank(volunteerID) {
		return "", invalid("volunteerId is required")
	}
	return handoff.CodeFor(volunteerID), nil
}

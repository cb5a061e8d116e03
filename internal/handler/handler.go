// Package handler содержит HTTP-обработчики API сервиса передачи пожертвований.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/authz"
	"github.com/mmeshcher/foodrescue/internal/middleware"
	"github.com/mmeshcher/foodrescue/internal/model"
	"github.com/mmeshcher/foodrescue/internal/service"
	"github.com/mmeshcher/foodrescue/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateDonation(ctx context.Context, p authz.Principal, nd model.NewDonation) (*model.Donation, error)
	ListAvailable(ctx context.Context, p authz.Principal) ([]model.Donation, error)
	GetDonation(ctx context.Context, p authz.Principal, id string) (*model.Donation, error)
	AssignVolunteer(ctx context.Context, p authz.Principal, id, volunteerID string) (*model.Donation, error)
	CancelAssignment(ctx context.Context, p authz.Principal, id string) (*model.Donation, error)
	WithdrawDonation(ctx context.Context, p authz.Principal, id string) (*model.Donation, error)
	CompleteDelivery(ctx context.Context, p authz.Principal, id, volunteerID, destinationID string) (*model.Donation, error)
	DeleteDonation(ctx context.Context, p authz.Principal, id string) error
	ConfirmPickup(ctx context.Context, p authz.Principal, supplierID string, cred service.PickupCredential) (*model.PickupResult, error)
	SupplierListed(ctx context.Context, p authz.Principal, supplierID string) ([]model.Donation, error)
	Receipts(ctx context.Context, p authz.Principal, supplierID string, q model.ReceiptQuery) (*model.Receipt, error)
	SupplierOverview(ctx context.Context, p authz.Principal, supplierID string) (*model.SupplierOverview, error)
	VolunteerScheduled(ctx context.Context, p authz.Principal, volunteerID string) ([]model.Donation, error)
	VolunteerCompleted(ctx context.Context, p authz.Principal, volunteerID string) ([]model.Donation, error)
	VolunteerCompletedCount(ctx context.Context, p authz.Principal, volunteerID string) (int64, error)
	PickupCode(ctx context.Context, p authz.Principal, volunteerID string) (string, error)
	Dashboard(ctx context.Context, p authz.Principal) (*model.Dashboard, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       v,
	}
	auth.Unauthorized = h.unauthorized
	return h
}

func principal(r *http.Request) authz.Principal {
	p, ok := authz.FromContext(r.Context())
	if !ok {
		return authz.Anonymous
	}
	return p
}

type impactRequest struct {
	MealsSaved int64   `json:"mealsSaved" validate:"gte=0"`
	CO2Avoided float64 `json:"co2Avoided" validate:"gte=0"`
}

type createDonationRequest struct {
	DonorID            string        `json:"donorId" validate:"max=256"`
	DonorKind          string        `json:"donorKind" validate:"omitempty,oneof=Individual Business Distributor"`
	ItemName           string        `json:"itemName" validate:"required,max=200"`
	Category           string        `json:"category" validate:"required"`
	Quantity           string        `json:"quantity" validate:"max=100"`
	Description        string        `json:"description" validate:"max=2000"`
	PickupInstructions string        `json:"pickupInstructions" validate:"max=1000"`
	ExpiresAt          *time.Time    `json:"expiresAt"`
	EstimatedValue     float64       `json:"estimatedValue" validate:"gte=0"`
	ImpactEstimate     impactRequest `json:"impactEstimate"`
}

// CreateDonation размещает новое пожертвование.
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := h.decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err := h.service.CreateDonation(r.Context(), principal(r), model.NewDonation{
		DonorID:            req.DonorID,
		DonorKind:          model.DonorKind(req.DonorKind),
		ItemName:           req.ItemName,
		Category:           model.Category(strings.ToLower(strings.TrimSpace(req.Category))),
		Quantity:           req.Quantity,
		Description:        req.Description,
		PickupInstructions: req.PickupInstructions,
		ExpiresAt:          req.ExpiresAt,
		EstimatedValue:     req.EstimatedValue,
		Impact: model.ImpactEstimate{
			MealsSaved: req.ImpactEstimate.MealsSaved,
			CO2Avoided: req.ImpactEstimate.CO2Avoided,
		},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusCreated, d, "Donation created")
}

// ListAvailable возвращает доступные пожертвования.
func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAvailable(r.Context(), principal(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, list, "")
}

// GetDonation возвращает пожертвование по идентификатору.
func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetDonation(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, d, "")
}

type assignRequest struct {
	VolunteerID string `json:"volunteerId" validate:"max=256"`
}

// AssignVolunteer назначает волонтёра на пожертвование.
func (h *Handler) AssignVolunteer(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := h.decodeJSON(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err := h.service.AssignVolunteer(r.Context(), principal(r), chi.URLParam(r, "id"), req.VolunteerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, d, "Volunteer assigned")
}

// CancelAssignment снимает назначение волонтёра.
func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.CancelAssignment(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, d, "Assignment cancelled")
}

// WithdrawDonation снимает пожертвование с публикации.
func (h *Handler) WithdrawDonation(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.WithdrawDonation(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, d, "Donation withdrawn")
}

type completeRequest struct {
	VolunteerID   string `json:"volunteerId" validate:"max=256"`
	DestinationID string `json:"destinationId" validate:"max=256"`
}

// CompleteDelivery фиксирует доставку пожертвования.
func (h *Handler) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := h.decodeJSON(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err := h.service.CompleteDelivery(r.Context(), principal(r), chi.URLParam(r, "id"), req.VolunteerID, req.DestinationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, d, "Delivery completed")
}

// DeleteDonation удаляет пожертвование.
func (h *Handler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDonation(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, nil, "Donation deleted")
}

type confirmPickupRequest struct {
	ConfirmationCode   string `json:"confirmationCode" validate:"max=64"`
	ScannedVolunteerID string `json:"scannedVolunteerId" validate:"max=256"`
}

// ConfirmPickup подтверждает передачу пожертвований волонтёру у поставщика.
func (h *Handler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	var req confirmPickupRequest
	if err := h.decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ConfirmPickup(r.Context(), principal(r), chi.URLParam(r, "supplierId"), service.PickupCredential{
		Code:               req.ConfirmationCode,
		ScannedVolunteerID: req.ScannedVolunteerID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, res, fmt.Sprintf("Pickup confirmed for %d donation(s)", res.ModifiedCount))
}

// SupplierListed возвращает опубликованные поставщиком пожертвования.
func (h *Handler) SupplierListed(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.SupplierListed(r.Context(), principal(r), chi.URLParam(r, "supplierId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, list, "")
}

func parseReceiptQuery(r *http.Request) (model.ReceiptQuery, error) {
	var q model.ReceiptQuery

	values := r.URL.Query()
	from, err := validation.ParseDay(values.Get("startDate"))
	if err != nil {
		return q, apperr.Wrap(apperr.KindInvalidInput, "parse startDate", err, "startDate must be YYYY-MM-DD")
	}
	to, err := validation.ParseDay(values.Get("endDate"))
	if err != nil {
		return q, apperr.Wrap(apperr.KindInvalidInput, "parse endDate", err, "endDate must be YYYY-MM-DD")
	}
	q.From, q.To = from, to

	if raw := values.Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			return q, apperr.Wrap(apperr.KindInvalidInput, "parse all", err, "all must be true or false")
		}
		q.All = all
	}

	return q, nil
}

// Receipts возвращает квитанцию поставщика за период.
func (h *Handler) Receipts(w http.ResponseWriter, r *http.Request) {
	q, err := parseReceiptQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	receipt, err := h.service.Receipts(r.Context(), principal(r), chi.URLParam(r, "supplierId"), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, receipt, "")
}

// SupplierOverview возвращает сводку поставщика.
func (h *Handler) SupplierOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.SupplierOverview(r.Context(), principal(r), chi.URLParam(r, "supplierId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, overview, "")
}

// VolunteerScheduled возвращает текущие задания волонтёра.
func (h *Handler) VolunteerScheduled(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.VolunteerScheduled(r.Context(), principal(r), chi.URLParam(r, "volunteerId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, list, "")
}

// VolunteerCompleted возвращает выполненные волонтёром доставки.
func (h *Handler) VolunteerCompleted(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.VolunteerCompleted(r.Context(), principal(r), chi.URLParam(r, "volunteerId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, list, "")
}

type countResponse struct {
	Count int64 `json:"count"`
}

// VolunteerCompletedCount возвращает число доставок волонтёра.
func (h *Handler) VolunteerCompletedCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.VolunteerCompletedCount(r.Context(), principal(r), chi.URLParam(r, "volunteerId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, countResponse{Count: n}, "")
}

type pickupCodeResponse struct {
	VolunteerID string `json:"volunteerId"`
	Code        string `json:"code"`
}

// PickupCode возвращает код подтверждения передачи волонтёра.
func (h *Handler) PickupCode(w http.ResponseWriter, r *http.Request) {
	volunteerID := chi.URLParam(r, "volunteerId")
	code, err := h.service.PickupCode(r.Context(), principal(r), volunteerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, pickupCodeResponse{VolunteerID: volunteerID, Code: code}, "")
}

// Dashboard возвращает все пожертвования, сгруппированные по состояниям.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context(), principal(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, dash, "")
}

// Health сообщает, что процесс обслуживает запросы.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// Package model содержит доменные сущности сервиса передачи пожертвований.
package model

import (
	"strings"
	"time"
)

// Status описывает состояние пожертвования в жизненном цикле.
// Допустимые переходы между состояниями определяет пакет lifecycle.
type Status string

const (
	StatusAvailable Status = "available"
	StatusScheduled Status = "scheduled"
	StatusPickedUp  Status = "picked_up"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses перечисляет все допустимые состояния пожертвования.
var Statuses = []Status{StatusAvailable, StatusScheduled, StatusPickedUp, StatusCompleted, StatusCancelled}

// Valid сообщает, относится ли значение к закрытому набору состояний.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label возвращает человекочитаемое название состояния для квитанций и обзоров.
func (s Status) Label() string {
	switch s {
	case StatusAvailable:
		return "Available"
	case StatusScheduled:
		return "Scheduled"
	case StatusPickedUp:
		return "Picked Up"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	}
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// DonorKind описывает тип донора, разместившего пожертвование.
type DonorKind string

const (
	DonorIndividual  DonorKind = "Individual"
	DonorBusiness    DonorKind = "Business"
	DonorDistributor DonorKind = "Distributor"
)

// Valid сообщает, относится ли значение к допустимым типам донора.
func (k DonorKind) Valid() bool {
	switch k {
	case DonorIndividual, DonorBusiness, DonorDistributor:
		return true
	}
	return false
}

// Category описывает категорию продуктов.
type Category string

const (
	CategoryProduce  Category = "produce"
	CategoryBakery   Category = "bakery"
	CategoryDairy    Category = "dairy"
	CategoryMeat     Category = "meat"
	CategoryCanned   Category = "canned"
	CategoryDry      Category = "dry"
	CategoryFrozen   Category = "frozen"
	CategoryPrepared Category = "prepared"
	CategoryOther    Category = "other"
)

// Categories перечисляет все допустимые категории.
var Categories = []Category{
	CategoryProduce, CategoryBakery, CategoryDairy, CategoryMeat, CategoryCanned,
	CategoryDry, CategoryFrozen, CategoryPrepared, CategoryOther,
}

// Valid сообщает, относится ли значение к допустимым категориям.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Role описывает роль участника, выданную провайдером идентификации.
type Role string

const (
	RoleIndividual  Role = "individual"
	RoleBusiness    Role = "business"
	RoleDistributor Role = "distributor"
	RoleVolunteer   Role = "volunteer"
	RoleOrganizer   Role = "organizer"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleIndividual, RoleBusiness, RoleDistributor, RoleVolunteer, RoleOrganizer:
		return true
	}
	return false
}

// IsDonor сообщает, может ли участник с этой ролью размещать пожертвования от своего имени.
func (r Role) IsDonor() bool {
	_, ok := r.DonorKind()
	return ok
}

// DonorKind возвращает тип донора, соответствующий роли.
func (r Role) DonorKind() (DonorKind, bool) {
	switch r {
	case RoleIndividual:
		return DonorIndividual, true
	case RoleBusiness:
		return DonorBusiness, true
	case RoleDistributor:
		return DonorDistributor, true
	}
	return "", false
}

// ImpactEstimate содержит оценку пользы пожертвования, заданную при создании.
type ImpactEstimate struct {
	MealsSaved int64   `json:"mealsSaved"`
	CO2Avoided float64 `json:"co2Avoided"`
}

// Donation описывает единицу работы, то есть пожертвование, проходящее путь от донора до получателя.
type Donation struct {
	ID                 string         `json:"id"`
	DonorID            string         `json:"donorId"`
	DonorKind          DonorKind      `json:"donorKind"`
	ItemName           string         `json:"itemName"`
	Category           Category       `json:"category"`
	Quantity           string         `json:"quantity,omitempty"`
	Description        string         `json:"description,omitempty"`
	PickupInstructions string         `json:"pickupInstructions,omitempty"`
	ExpiresAt          *time.Time     `json:"expiresAt,omitempty"`
	EstimatedValue     float64        `json:"estimatedValue"`
	Impact             ImpactEstimate `json:"impactEstimate"`
	Status             Status         `json:"status"`
	VolunteerID        *string        `json:"volunteerId"`
	DestinationID      *string        `json:"destinationId"`
	PickupAt           *time.Time     `json:"pickupTimestamp"`
	DeliveredAt        *time.Time     `json:"deliveryTimestamp"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// BoundVolunteer возвращает идентификатор назначенного волонтёра или пустую строку.
func (d *Donation) BoundVolunteer() string {
	if d == nil || d.VolunteerID == nil {
		return ""
	}
	return *d.VolunteerID
}

// NewDonation содержит данные для создания пожертвования.
type NewDonation struct {
	DonorID            string
	DonorKind          DonorKind
	ItemName           string
	Category           Category
	Quantity           string
	Description        string
	PickupInstructions string
	ExpiresAt          *time.Time
	EstimatedValue     float64
	Impact             ImpactEstimate
}

// SortOrder задаёт порядок сортировки выборки.
type SortOrder int

const (
	// NewestFirst сортирует по времени создания по убыванию.
	NewestFirst SortOrder = iota
	// OldestFirst сортирует по времени создания по возрастанию.
	OldestFirst
	// LatestDeliveryFirst сортирует по времени доставки по убыванию.
	LatestDeliveryFirst
)

// DonationFilter описывает условия выборки пожертвований.
type DonationFilter struct {
	DonorID     string
	VolunteerID string
	Statuses    []Status
	CreatedFrom *time.Time
	// CreatedTo: включительная верхняя граница времени создания.
	CreatedTo *time.Time
	Sort      SortOrder
	Limit     int
}

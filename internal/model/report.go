package model

import "time"

// ReceiptDisclaimer сопровождает каждую квитанцию о пожертвованиях.
const ReceiptDisclaimer = "The stated approximate value is an internal estimate and may not reflect the Fair Market Value for tax purposes. Consult a tax professional for guidance on charitable donation deductions."

// ReceiptLine описывает одно пожертвование в квитанции.
type ReceiptLine struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	ItemName       string    `json:"itemName"`
	Category       Category  `json:"category"`
	Quantity       string    `json:"quantity,omitempty"`
	Status         string    `json:"status"`
	EstimatedValue float64   `json:"estimatedValue"`
	MealsSaved     int64     `json:"mealsSaved"`
	CO2Avoided     float64   `json:"co2Avoided"`
}

// ReceiptSummary содержит итоги квитанции.
type ReceiptSummary struct {
	TotalDonations      int       `json:"totalDonations"`
	TotalEstimatedValue float64   `json:"totalEstimatedValue"`
	TotalMealsSaved     int64     `json:"totalMealsSaved"`
	TotalCO2Avoided     float64   `json:"totalCo2Avoided"`
	StartDate           string    `json:"startDate"`
	EndDate             string    `json:"endDate"`
	GeneratedAt         time.Time `json:"generatedAt"`
}

// Receipt описывает квитанцию донора за период.
type Receipt struct {
	DonorID    string         `json:"donorId"`
	Donations  []ReceiptLine  `json:"donations"`
	Summary    ReceiptSummary `json:"summary"`
	Disclaimer string         `json:"disclaimer"`
}

// ReceiptQuery задаёт параметры построения квитанции.
type ReceiptQuery struct {
	From *time.Time
	// To: включительная дата окончания периода (весь день).
	To  *time.Time
	All bool
}

// ImpactStats содержит суммарную оценку пользы.
type ImpactStats struct {
	TotalMealsSaved int64   `json:"totalMealsSaved"`
	TotalCO2Avoided float64 `json:"totalCo2Avoided"`
}

// RecentDonation описывает пожертвование в обзоре поставщика.
type RecentDonation struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   string    `json:"quantity"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Category   Category  `json:"category"`
	MealsSaved int64     `json:"mealsSaved"`
	CO2Avoided float64   `json:"co2Avoided"`
}

// SupplierOverview содержит сводку по пожертвованиям поставщика.
type SupplierOverview struct {
	DonatedItems    int              `json:"donatedItems"`
	UpcomingPickups int              `json:"upcomingPickups"`
	Impact          ImpactStats      `json:"impactStats"`
	Recent          []RecentDonation `json:"recentDonations"`
}

// Dashboard группирует все пожертвования по состояниям для организатора.
type Dashboard struct {
	Available []Donation `json:"available"`
	Scheduled []Donation `json:"scheduled"`
	PickedUp  []Donation `json:"pickedUp"`
	Completed []Donation `json:"completed"`
	Cancelled []Donation `json:"cancelled"`
}

// PickupResult описывает итог подтверждения передачи у поставщика.
type PickupResult struct {
	VolunteerID   string `json:"volunteerId"`
	ModifiedCount int64  `json:"modifiedCount"`
}

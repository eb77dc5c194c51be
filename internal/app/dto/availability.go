package dto

type AvailabilityDTO struct {
	ApartmentID string   `json:"apartment_id"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Available   bool     `json:"available"`
	Conflicts   []string `json:"conflicts"`
}

type BookedDatesDTO struct {
	ApartmentID string           `json:"apartment_id"`
	Ranges      []BookedRangeDTO `json:"ranges"`
}

package dto

// AccountingRow is one fully paid stay in the accounting export.
type AccountingRow struct {
	Apartment  string   `json:"apartment"`
	Customer   string   `json:"customer"`
	Email      string   `json:"email"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	TotalPaid  MoneyDTO `json:"total_paid"`
	TotalPrice MoneyDTO `json:"total_price"`
}

type AccountingReport struct {
	Rows []AccountingRow `json:"rows"`
}

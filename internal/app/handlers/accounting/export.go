package accounting

import (
	"context"
	"sort"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

const accountingReportKey = "accounting.report"

// ReportQuery lists every fully paid booking that was not cancelled.
type ReportQuery struct{}

func (q ReportQuery) Key() string   { return accountingReportKey }
func (q ReportQuery) OperatorOnly() {}

type ReportHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ReportHandler) Handle(ctx context.Context, _ ReportQuery) (dto.AccountingReport, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AccountingReport{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	apts, err := unit.Apartments().List(execCtx)
	if err != nil {
		return dto.AccountingReport{}, err
	}
	names := make(map[domainapartment.ID]string, len(apts))
	for _, a := range apts {
		names[a.ID] = a.Name
	}
	bookings, err := unit.Bookings().List(execCtx, domainbooking.ListFilter{
		Statuses: []domainbooking.Status{domainbooking.StatusPending, domainbooking.StatusConfirmed, domainbooking.StatusRejected},
	})
	if err != nil {
		return dto.AccountingReport{}, err
	}
	paid := make([]*domainbooking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Paid() {
			paid = append(paid, b)
		}
	}
	sort.SliceStable(paid, func(i, j int) bool {
		ni, nj := names[paid[i].ApartmentID], names[paid[j].ApartmentID]
		if ni != nj {
			return ni < nj
		}
		return paid[i].Range.Start.Before(paid[j].Range.Start)
	})
	rows := make([]dto.AccountingRow, 0, len(paid))
	for _, b := range paid {
		rows = append(rows, dto.AccountingRow{
			Apartment:  names[b.ApartmentID],
			Customer:   b.Customer.Name,
			Email:      b.Customer.Email,
			StartDate:  daterange.Format(b.Range.Start),
			EndDate:    daterange.Format(b.Range.End),
			TotalPaid:  dto.MapMoney(b.AmountPaid),
			TotalPrice: dto.MapMoney(b.TotalPrice),
		})
	}
	return dto.AccountingReport{Rows: rows}, nil
}

var _ queries.Handler[ReportQuery, dto.AccountingReport] = (*ReportHandler)(nil)

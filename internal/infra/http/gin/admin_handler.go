package ginserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	accountingapp "staybook/internal/app/handlers/accounting"
	apartmentsapp "staybook/internal/app/handlers/apartments"
	bookingapp "staybook/internal/app/handlers/booking"
	remindersapp "staybook/internal/app/handlers/reminders"
	"staybook/internal/app/queries"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AccountingWriter renders the accounting report as a spreadsheet.
type AccountingWriter interface {
	WriteAccounting(w io.Writer, report dto.AccountingReport) error
}

// AdminHandler serves the operator routes. requireOperator guards the group and every
// command re-checks the actor on its own.
type AdminHandler struct {
	Commands   commands.Bus
	Queries    queries.Bus
	Accounting AccountingWriter
	Clock      func() time.Time
	Logger     *slog.Logger
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type apartmentRequest struct {
	Slug                 string `json:"slug"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	ChangeoverDay        string `json:"changeover_day"`
	DefaultRateCents     int64  `json:"default_weekly_price"`
	ParkingWeeklyCents   *int64 `json:"parking_weekly_price"`
	ArrivalInstruction   string `json:"arrival_instruction"`
	DepartureInstruction string `json:"departure_instruction"`
	ParkingInstruction   string `json:"parking_instruction"`
}

type seasonalRateRequest struct {
	PriceCents int64 `json:"price"`
}

func (h AdminHandler) ListBookings(c *gin.Context) {
	q := bookingapp.ListBookingsQuery{ApartmentID: c.Query("apartment_id"), Status: c.Query("status")}
	res, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) GetBooking(c *gin.Context) {
	res, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingDTO](c.Request.Context(), h.Queries, bookingapp.GetBookingQuery{BookingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) Confirm(c *gin.Context) {
	h.dispatch(c, bookingapp.ConfirmBookingCommand{BookingID: c.Param("id")})
}

func (h AdminHandler) Reject(c *gin.Context) {
	h.dispatch(c, bookingapp.RejectBookingCommand{BookingID: c.Param("id")})
}

func (h AdminHandler) Cancel(c *gin.Context) {
	h.dispatch(c, bookingapp.CancelBookingCommand{BookingID: c.Param("id")})
}

// UpdateStatus accepts the generic status endpoint and routes it to the matching transition.
func (h AdminHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	cmd, err := bookingapp.StatusCommand(c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.dispatch(c, cmd)
}

func (h AdminHandler) Update(c *gin.Context) {
	var fields map[string]json.RawMessage
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "patch body must be a JSON object")
		return
	}
	cmd := bookingapp.UpdateBookingCommand{BookingID: c.Param("id"), Fields: fields}
	res, err := commands.Dispatch[bookingapp.UpdateBookingCommand, *bookingapp.UpdateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) SaveApartment(c *gin.Context) {
	var req apartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid apartment payload")
		return
	}
	cmd := apartmentsapp.SaveApartmentCommand{
		ApartmentID:          c.Param("id"),
		Slug:                 req.Slug,
		Name:                 req.Name,
		Description:          req.Description,
		ChangeoverDay:        req.ChangeoverDay,
		DefaultRateCents:     req.DefaultRateCents,
		ParkingWeeklyCents:   req.ParkingWeeklyCents,
		ArrivalInstruction:   req.ArrivalInstruction,
		DepartureInstruction: req.DepartureInstruction,
		ParkingInstruction:   req.ParkingInstruction,
	}
	res, err := commands.Dispatch[apartmentsapp.SaveApartmentCommand, *apartmentsapp.ApartmentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (h AdminHandler) SetSeasonalRate(c *gin.Context) {
	var req seasonalRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "price is required")
		return
	}
	cmd := apartmentsapp.SetSeasonalRateCommand{ApartmentID: c.Param("id"), WeekStart: c.Param("week"), PriceCents: req.PriceCents}
	res, err := commands.Dispatch[apartmentsapp.SetSeasonalRateCommand, *dto.SeasonalRateDTO](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) DeleteSeasonalRate(c *gin.Context) {
	cmd := apartmentsapp.DeleteSeasonalRateCommand{ApartmentID: c.Param("id"), WeekStart: c.Param("week")}
	if _, err := commands.Dispatch[apartmentsapp.DeleteSeasonalRateCommand, *struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AccountingExport streams the report as xlsx, or JSON when format=json.
func (h AdminHandler) AccountingExport(c *gin.Context) {
	report, err := queries.Ask[accountingapp.ReportQuery, dto.AccountingReport](c.Request.Context(), h.Queries, accountingapp.ReportQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if c.Query("format") == "json" || h.Accounting == nil {
		c.JSON(http.StatusOK, report)
		return
	}
	var buf bytes.Buffer
	if err := h.Accounting.WriteAccounting(&buf, report); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	name := fmt.Sprintf("accounting-%s.xlsx", h.now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h AdminHandler) RunSweep(c *gin.Context) {
	cmd := remindersapp.RunSweepCommand{Day: c.Query("day")}
	res, err := commands.Dispatch[remindersapp.RunSweepCommand, *remindersapp.SweepResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) dispatch(c *gin.Context, cmd commands.Command) {
	res, err := h.Commands.Dispatch(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

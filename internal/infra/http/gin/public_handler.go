package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	apartmentsapp "staybook/internal/app/handlers/apartments"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	contactapp "staybook/internal/app/handlers/contact"
	pricingapp "staybook/internal/app/handlers/pricing"
	"staybook/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

// PublicHandler serves the guest facing routes.
type PublicHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ApartmentID string `json:"apartment_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	HasParking  bool   `json:"has_parking"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (h PublicHandler) ListApartments(c *gin.Context) {
	res, err := queries.Ask[apartmentsapp.ListApartmentsQuery, dto.ApartmentCollection](c.Request.Context(), h.Queries, apartmentsapp.ListApartmentsQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetApartment looks the apartment up by slug.
func (h PublicHandler) GetApartment(c *gin.Context) {
	res, err := queries.Ask[apartmentsapp.GetApartmentBySlugQuery, dto.ApartmentDTO](c.Request.Context(), h.Queries, apartmentsapp.GetApartmentBySlugQuery{Slug: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h PublicHandler) BookedDates(c *gin.Context) {
	res, err := queries.Ask[availabilityapp.BookedDatesQuery, dto.BookedDatesDTO](c.Request.Context(), h.Queries, availabilityapp.BookedDatesQuery{ApartmentID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h PublicHandler) Availability(c *gin.Context) {
	q := availabilityapp.CheckAvailabilityQuery{
		ApartmentID: c.Param("id"),
		StartDate:   c.Query("start"),
		EndDate:     c.Query("end"),
	}
	res, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityDTO](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h PublicHandler) Quote(c *gin.Context) {
	parking := false
	if raw := c.Query("parking"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "parking must be a boolean")
			return
		}
		parking = v
	}
	q := pricingapp.QuotePriceQuery{
		ApartmentID: c.Param("id"),
		StartDate:   c.Query("start"),
		EndDate:     c.Query("end"),
		HasParking:  parking,
	}
	res, err := queries.Ask[pricingapp.QuotePriceQuery, dto.QuoteDTO](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h PublicHandler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid booking payload")
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		ApartmentID:     req.ApartmentID,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Address:         req.Address,
		DateOfBirth:     req.DateOfBirth,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		HasParking:      req.HasParking,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	res, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h PublicHandler) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid contact payload")
		return
	}
	cmd := contactapp.SendContactCommand{Name: req.Name, Email: req.Email, Message: req.Message}
	res, err := commands.Dispatch[contactapp.SendContactCommand, *contactapp.SendContactResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

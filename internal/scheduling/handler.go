package scheduling

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swimslot/internal/api"
	"swimslot/internal/apperr"
	"swimslot/internal/auth"
	"swimslot/internal/booking"
	"swimslot/internal/logger"
	"swimslot/internal/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the booking routes on an authenticated group. Staff-only
// routes are additionally gated by role.
func (h *Handler) Register(rg *gin.RouterGroup, staffOnly gin.HandlerFunc) {
	rg.GET("/sessions/available", h.ListAvailableSessions)
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/:bookingID", h.GetBooking)
	rg.POST("/bookings/:bookingID/cancel", h.CancelBooking)
	rg.POST("/bookings/:bookingID/reschedule", h.RescheduleBooking)
	rg.GET("/swimmers/:swimmerID/bookings", h.ListSwimmerBookings)

	rg.POST("/sessions", staffOnly, h.CreateSession)
	rg.PATCH("/bookings/:bookingID/instructor", staffOnly, h.ChangeInstructor)
	rg.PATCH("/bookings/:bookingID/status", staffOnly, h.SetBookingStatus)
}

func actorFrom(c *gin.Context) (Actor, bool) {
	id, ok := auth.GetUserID(c)
	if !ok {
		return Actor{}, false
	}
	role, _ := auth.GetUserRole(c)
	return Actor{UserID: id, Role: role}, true
}

func (h *Handler) withActor(c *gin.Context) (Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
	}
	return actor, ok
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, ErrForbidden) {
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error(), Kind: "forbidden"})
		return
	}

	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, api.ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(status, api.ErrorResponse{Error: err.Error(), Kind: string(apperr.KindOf(err))})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Kind: string(apperr.KindValidation)})
}

// ListAvailableSessions godoc
// @Summary      List sessions with free places
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        from          query  string  true   "RFC3339 range start"
// @Param        to            query  string  false  "RFC3339 range end, defaults to one week after from"
// @Param        instructor_id query  string  false  "Instructor filter"
// @Param        location      query  string  false  "Location filter"
// @Param        session_type  query  string  false  "lesson or assessment"
// @Success      200  {array}   session.Session
// @Failure      400  {object}  api.ErrorResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /sessions/available [get]
func (h *Handler) ListAvailableSessions(c *gin.Context) {
	var q AvailableSessionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	sessions, err := h.svc.ListAvailableSessions(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) CreateSession(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	var req session.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.svc.CreateSession(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// CreateBooking godoc
// @Summary      Book a session for a swimmer
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      CreateBookingRequest  true  "Booking"
// @Success      201   {object}  booking.Booking
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	b, err := h.svc.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	b, err := h.svc.GetBooking(c.Request.Context(), actor, c.Param("bookingID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// CancelBooking godoc
// @Summary      Cancel a confirmed booking
// @Description  Releases the place. Late cancellations by parents are refused; staff may flag the swimmer as flexible.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      string                true  "Booking ID"
// @Param        body       body      CancelBookingRequest  true  "Cancellation"
// @Success      200        {object}  CancelResult
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.CancelBooking(c.Request.Context(), actor, c.Param("bookingID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.RescheduleBooking(c.Request.Context(), actor, c.Param("bookingID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ChangeInstructor godoc
// @Summary      Reassign the instructor of a booking's session
// @Description  With apply_to_future, later lessons of the same swimmer follow. Per-session failures are listed, not fatal.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      string                   true  "Booking ID"
// @Param        body       body      ChangeInstructorRequest  true  "Reassignment"
// @Success      200        {object}  instructorChangeResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/instructor [patch]
func (h *Handler) ChangeInstructor(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	var req ChangeInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.ChangeInstructor(c.Request.Context(), actor, c.Param("bookingID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	out := instructorChangeResponse{
		Booking:  res.Booking,
		Session:  res.Session,
		Cascaded: res.Cascaded,
		Failures: []cascadeFailure{},
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, cascadeFailure{SessionID: f.SessionID, Error: f.Err.Error()})
	}
	if res.SeriesLookupErr != nil {
		out.SeriesError = res.SeriesLookupErr.Error()
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handler) SetBookingStatus(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	b, err := h.svc.SetBookingStatus(c.Request.Context(), actor, c.Param("bookingID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

func (h *Handler) ListSwimmerBookings(c *gin.Context) {
	actor, ok := h.withActor(c)
	if !ok {
		return
	}

	bookings, err := h.svc.ListSwimmerBookings(c.Request.Context(), actor, c.Param("swimmerID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

type cascadeFailure struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

type instructorChangeResponse struct {
	Booking     *booking.Booking `json:"booking"`
	Session     *session.Session `json:"session"`
	Cascaded    []string         `json:"cascaded_session_ids"`
	Failures    []cascadeFailure `json:"failures"`
	SeriesError string           `json:"series_error,omitempty"`
}

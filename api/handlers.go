package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridematch/pkg/apperr"
	"ridematch/pkg/models"
)

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			s.log.Warning("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) register(c *gin.Context) {
	var in models.Registration
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	acc, err := s.svc.User().Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

func (s *Server) login(c *gin.Context) {
	var in loginRequest
	if err := bind(c, &in); err != nil {
		s.fail(c, err)
		return
	}
	acc, err := s.svc.User().VerifyCredentials(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	token, expiresAt, err := s.tokens.Issue(acc)
	if err != nil {
		s.fail(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, Account: acc})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, caller(c))
}

type createRequestBody struct {
	Pickup   string          `json:"pickup"`
	Drop     string          `json:"drop"`
	Category models.Category `json:"category"`
	Payment  decimal.Decimal `json:"payment"`
}

func (s *Server) createRequest(c *gin.Context) {
	var body createRequestBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	id, err := s.svc.Request().CreateRequest(c.Request.Context(), caller(c), models.NewRideRequest{
		Pickup:   body.Pickup,
		Drop:     body.Drop,
		Category: body.Category,
		Payment:  body.Payment,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request_id": id})
}

func (s *Server) cancelRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.svc.Request().CancelRequest(c.Request.Context(), caller(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": id, "status": models.RequestCancelled})
}

func (s *Server) currentForPassenger(c *gin.Context) {
	cur, err := s.svc.Request().GetCurrent(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if cur == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, cur)
}

func (s *Server) history(c *gin.Context) {
	entries, err := s.svc.Request().History(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) cancel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	kind, err := s.svc.Lifecycle().Cancel(c.Request.Context(), caller(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "kind": kind, "status": "cancelled"})
}

func (s *Server) listOpen(c *gin.Context) {
	open, err := s.svc.Matching().ListOpen(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, open)
}

func (s *Server) accept(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	rideID, err := s.svc.Matching().Accept(c.Request.Context(), caller(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ride_id": rideID})
}

func (s *Server) reject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.svc.Matching().Reject(c.Request.Context(), caller(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusBody struct {
	Status models.RideStatus `json:"status"`
}

func (s *Server) updateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var body statusBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	ride, err := s.svc.Lifecycle().UpdateStatus(c.Request.Context(), caller(c), id, body.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ride)
}

func (s *Server) currentForDriver(c *gin.Context) {
	ride, err := s.svc.Lifecycle().CurrentForDriver(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if ride == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, ride)
}

func (s *Server) driverRides(c *gin.Context) {
	rides, err := s.svc.Lifecycle().DriverRides(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rides)
}

type availabilityBody struct {
	Available *bool `json:"available"`
}

func (s *Server) setAvailability(c *gin.Context) {
	var body availabilityBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	if err := requireField(body.Available != nil, "available"); err != nil {
		s.fail(c, err)
		return
	}
	acc, err := s.svc.User().SetAvailability(c.Request.Context(), caller(c), *body.Available)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (s *Server) balance(c *gin.Context) {
	balance, err := s.svc.Settlement().GetBalance(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (s *Server) payments(c *gin.Context) {
	payments, err := s.svc.Settlement().ListPayments(c.Request.Context(), caller(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

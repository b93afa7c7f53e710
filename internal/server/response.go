package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/apperr"
	"github.com/dairyline/milk-distributor/internal/ledger"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"

	internalErrorMessage = "Something went wrong!"
)

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Error("failed to encode response", zap.Error(err))
		}
	}
}

func respondSuccess(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, envelope{Status: statusSuccess, Data: data})
}

func respondFail(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Status: statusFail, Message: message})
}

// respondError writes operational errors with their own code and message.
// Anything else is logged and reported as a 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperr.As(err); ok {
		respondFail(w, appErr.StatusCode(), appErr.Message)
		return
	}

	s.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)

	body := envelope{Status: statusError, Message: internalErrorMessage}
	if !s.production {
		body.Error = err.Error()
	}
	respondJSON(w, http.StatusInternalServerError, body)
}

type capacityResponse struct {
	Date         string  `json:"date"`
	MaxCapacity  float64 `json:"maxCapacity"`
	QuantityLeft float64 `json:"quantityLeft"`
	UnitPrice    float64 `json:"unitPrice"`
}

func newCapacityResponse(c *ledger.Capacity) capacityResponse {
	return capacityResponse{
		Date:         c.Date.String(),
		MaxCapacity:  c.MaxCapacity.InexactFloat64(),
		QuantityLeft: c.QuantityLeft.InexactFloat64(),
		UnitPrice:    c.UnitPrice.InexactFloat64(),
	}
}

type orderResponse struct {
	OrderID      string  `json:"orderId"`
	OrderDate    string  `json:"orderDate"`
	DeliveryDate *string `json:"deliveryDate"`
	Quantity     float64 `json:"quantity"`
	TotalPrice   float64 `json:"totalPrice"`
	Status       string  `json:"status"`
	Address      string  `json:"address"`
}

func newOrderResponse(o *ledger.Order) orderResponse {
	resp := orderResponse{
		OrderID:    o.ID,
		OrderDate:  o.OrderDate.String(),
		Quantity:   o.Quantity.InexactFloat64(),
		TotalPrice: o.TotalPrice.InexactFloat64(),
		Status:     string(o.Status),
		Address:    o.Address,
	}
	if o.DeliveryDate != nil {
		delivered := o.DeliveryDate.String()
		resp.DeliveryDate = &delivered
	}
	return resp
}

type orderEnvelope struct {
	Order orderResponse `json:"order"`
}

type orderListEnvelope struct {
	Orders  []orderResponse `json:"orders"`
	Results int             `json:"results"`
}

type historyEntryResponse struct {
	Status    string `json:"status"`
	ChangedAt string `json:"changedAt"`
}

type historyEnvelope struct {
	History []historyEntryResponse `json:"history"`
}

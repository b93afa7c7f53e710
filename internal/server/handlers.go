package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dairyline/milk-distributor/internal/ledger"
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Milk Distributer"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondFail(w, http.StatusNotFound, "Can't find "+r.URL.Path+" on this server!")
}

func (s *Server) handleGetCapacity(w http.ResponseWriter, r *http.Request) {
	day, err := pathDate(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	capacity, err := s.capacities.GetCapacity(r.Context(), day)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, newCapacityResponse(capacity))
}

// handleUpdateCapacity reads the day first so a direct edit of a future day
// that was never viewed still finds a record.
func (s *Server) handleUpdateCapacity(w http.ResponseWriter, r *http.Request) {
	day, err := pathDate(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req updateCapacityRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.MaxCapacity != nil {
		respondFail(w, http.StatusBadRequest, "Invalid input data. maxCapacity cannot be changed")
		return
	}
	// Checked here as well as in the ledger so an empty edit never creates
	// the day's record.
	if req.QuantityLeft == nil && req.UnitPrice == nil {
		respondFail(w, http.StatusBadRequest, "No fields to update")
		return
	}

	if _, err := s.capacities.GetCapacity(r.Context(), day); err != nil {
		s.respondError(w, r, err)
		return
	}

	capacity, err := s.capacities.UpdateCapacityDetails(r.Context(), day, ledger.CapacityUpdate{
		QuantityLeft: decimalPtr(req.QuantityLeft),
		UnitPrice:    decimalPtr(req.UnitPrice),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, newCapacityResponse(capacity))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), ledger.NewOrder{
		Quantity: *decimalPtr(req.Quantity),
		Address:  req.Address,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, orderEnvelope{Order: newOrderResponse(order)})
}

// handleListOrders lists the orders of ?date=, defaulting to today.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	day := s.clock.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		day = parsed
	}

	orders, err := s.orders.ListOrders(r.Context(), day)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := orderListEnvelope{Orders: make([]orderResponse, len(orders)), Results: len(orders)}
	for i, o := range orders {
		resp.Orders[i] = newOrderResponse(o)
	}
	respondSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, orderEnvelope{Order: newOrderResponse(order)})
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	order, err := s.orders.UpdateOrder(r.Context(), mux.Vars(r)["id"], ledger.OrderUpdate{
		Address:  req.Address,
		Status:   req.Status,
		Quantity: decimalPtr(req.Quantity),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, orderEnvelope{Order: newOrderResponse(order)})
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	order, err := s.orders.UpdateOrderStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, orderEnvelope{Order: newOrderResponse(order)})
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.DeleteOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, orderEnvelope{Order: newOrderResponse(order)})
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.orders.GetOrderHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := historyEnvelope{History: make([]historyEntryResponse, len(entries))}
	for i, e := range entries {
		resp.History[i] = historyEntryResponse{
			Status:    string(e.Status),
			ChangedAt: e.ChangedAt.UTC().Format(time.RFC3339),
		}
	}
	respondSuccess(w, http.StatusOK, resp)
}


package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/partnerdesk/partnerdesk/internal/domain"
	"github.com/partnerdesk/partnerdesk/internal/repository"
	"github.com/partnerdesk/partnerdesk/internal/service"
)

type orderResponse struct {
	ID                   string          `json:"id"`
	Identifier           string          `json:"identifier,omitempty"`
	PartnerID            string          `json:"partnerId"`
	Status               string          `json:"status"`
	StatusDisplay        string          `json:"statusDisplay"`
	Terminal             bool            `json:"terminal"`
	Editable             bool            `json:"editable"`
	OrderID              string          `json:"orderId,omitempty"`
	DraftOrderID         string          `json:"draftOrderId,omitempty"`
	CalculatedDraftOrder json.RawMessage `json:"calculatedDraftOrder,omitempty"`
	Version              int             `json:"version"`
	Owner                string          `json:"owner,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func toOrderResponse(o *domain.PurchaseOrder) orderResponse {
	return orderResponse{
		ID:                   o.ID,
		Identifier:           o.Identifier,
		PartnerID:            o.PartnerID,
		Status:               string(o.Status),
		StatusDisplay:        o.Status.DisplayName(),
		Terminal:             o.Status.Terminal(),
		Editable:             o.Editable(),
		OrderID:              o.OrderID,
		DraftOrderID:         o.DraftOrderID,
		CalculatedDraftOrder: o.CalculatedDraftOrder,
		Version:              o.Version,
		Owner:                o.Owner,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

type createOrderRequest struct {
	PartnerID            string          `json:"partnerId"`
	Identifier           string          `json:"identifier"`
	CalculatedDraftOrder json.RawMessage `json:"calculatedDraftOrder"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	owner := ""
	if claims, ok := getClaims(r.Context()); ok {
		owner = claims.UserID
	}

	o, err := s.orderService.Create(r.Context(), service.CreateOrderInput{
		PartnerID:            req.PartnerID,
		Identifier:           req.Identifier,
		CalculatedDraftOrder: req.CalculatedDraftOrder,
		Owner:                owner,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := s.orderService.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if o == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Purchase order not found."})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter := repository.OrderFilter{
		PartnerID: r.URL.Query().Get("partnerId"),
		Limit:     queryInt(r, "limit", 50),
		Skip:      queryInt(r, "skip", 0),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !status.Valid() {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "Unknown order status.",
				Details: map[string]string{"status": "unknown value"},
			})
			return
		}
		filter.Status = &status
	}

	orders, err := s.orderService.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": toOrderResponses(orders), "count": len(orders)})
}

func (s *Server) handleListPartnerOrders(w http.ResponseWriter, r *http.Request) {
	partnerID := chi.URLParam(r, "id")

	orders, err := s.orderService.ListByPartner(r.Context(), partnerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": toOrderResponses(orders), "count": len(orders)})
}

func toOrderResponses(orders []domain.PurchaseOrder) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	return resp
}

type updateOrderRequest struct {
	Identifier           *string         `json:"identifier"`
	OrderID              *string         `json:"orderId"`
	DraftOrderID         *string         `json:"draftOrderId"`
	CalculatedDraftOrder json.RawMessage `json:"calculatedDraftOrder"`
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateOrderRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	o, err := s.orderService.Update(r.Context(), id, service.UpdateOrderInput{
		Identifier:           req.Identifier,
		OrderID:              req.OrderID,
		DraftOrderID:         req.DraftOrderID,
		CalculatedDraftOrder: req.CalculatedDraftOrder,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type changeOrderStatusRequest struct {
	Status  string `json:"status"`
	Version int    `json:"version"`
}

func (s *Server) handleChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req changeOrderStatusRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	o, err := s.orderService.ChangeStatus(r.Context(), id, domain.OrderStatus(req.Status), req.Version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.orderService.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

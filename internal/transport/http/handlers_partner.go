package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/partnerdesk/partnerdesk/internal/domain"
	"github.com/partnerdesk/partnerdesk/internal/repository"
	"github.com/partnerdesk/partnerdesk/internal/service"
)

type partnerResponse struct {
	ID                       string    `json:"id"`
	MemberID                 string    `json:"memberId"`
	MemberName               string    `json:"memberName,omitempty"`
	CompanyName              string    `json:"companyName"`
	Status                   string    `json:"status"`
	StatusDisplay            string    `json:"statusDisplay"`
	GlobalDiscountPercentage float64   `json:"globalDiscountPercentage"`
	DiscountDisplay          string    `json:"discountDisplay"`
	CatalogID                string    `json:"catalogId,omitempty"`
	Owner                    string    `json:"owner,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func toPartnerResponse(p *domain.Partner) partnerResponse {
	view := p.View()
	return partnerResponse{
		ID:                       p.ID,
		MemberID:                 p.MemberID,
		CompanyName:              p.CompanyName,
		Status:                   string(p.Status),
		StatusDisplay:            view.StatusDisplay,
		GlobalDiscountPercentage: p.GlobalDiscountPercentage,
		DiscountDisplay:          view.DiscountDisplay,
		CatalogID:                p.CatalogID,
		Owner:                    p.Owner,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

type createPartnerRequest struct {
	MemberID                 string  `json:"memberId"`
	CompanyName              string  `json:"companyName"`
	Status                   string  `json:"status"`
	GlobalDiscountPercentage float64 `json:"globalDiscountPercentage"`
	CatalogID                string  `json:"catalogId"`
}

func (s *Server) handleCreatePartner(w http.ResponseWriter, r *http.Request) {
	var req createPartnerRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	owner := ""
	if claims, ok := getClaims(r.Context()); ok {
		owner = claims.UserID
	}

	p, err := s.partnerService.Create(r.Context(), service.CreatePartnerInput{
		MemberID:                 req.MemberID,
		CompanyName:              req.CompanyName,
		Status:                   domain.PartnerStatus(req.Status),
		GlobalDiscountPercentage: req.GlobalDiscountPercentage,
		CatalogID:                req.CatalogID,
		Owner:                    owner,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPartnerResponse(p))
}

func (s *Server) handleGetPartner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.partnerService.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Partner not found."})
		return
	}

	resp := toPartnerResponse(p)
	if name, err := s.partnerService.ResolveMemberName(r.Context(), p); err != nil {
		s.logger.Warn("member lookup failed", "partner_id", p.ID, "error", err)
	} else {
		resp.MemberName = name
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	filter := repository.PartnerFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Skip:   queryInt(r, "skip", 0),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.PartnerStatus(raw)
		if !status.Valid() {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "Unknown partner status.",
				Details: map[string]string{"status": "must be one of pending, active, inactive"},
			})
			return
		}
		filter.Status = &status
	}

	partners, err := s.partnerService.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]partnerResponse, 0, len(partners))
	for i := range partners {
		resp = append(resp, toPartnerResponse(&partners[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"partners": resp, "count": len(resp)})
}

type updatePartnerRequest struct {
	CompanyName              *string  `json:"companyName"`
	GlobalDiscountPercentage *float64 `json:"globalDiscountPercentage"`
	CatalogID                *string  `json:"catalogId"`
}

func (s *Server) handleUpdatePartner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updatePartnerRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.partnerService.Update(r.Context(), id, service.UpdatePartnerInput{
		CompanyName:              req.CompanyName,
		GlobalDiscountPercentage: req.GlobalDiscountPercentage,
		CatalogID:                req.CatalogID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPartnerResponse(p))
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleChangePartnerStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req changeStatusRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.partnerService.ChangeStatus(r.Context(), id, domain.PartnerStatus(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPartnerResponse(p))
}

func (s *Server) handleDeletePartner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.partnerService.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePartnerStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.partnerService.StatusCounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	byStatus := make(map[string]int64, len(counts))
	var total int64
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "byStatus": byStatus})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

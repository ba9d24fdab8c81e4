package server

import (
	"net/http"
	"strings"

	"github.com/krisalay/storefront-cache/platform"
)

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page := intParam(r, "page", 1, 1)
	res, err := c.GetOrders(r.Context(), token, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: res.Message})
		return
	}
	orders := res.Data
	if orders == nil {
		orders = []platform.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "page": page, "pages": res.Pages})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := c.GetOrder(r.Context(), token, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req platform.TicketRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch {
	case strings.TrimSpace(req.Email) == "":
		s.writeError(w, r, platform.Invalid("email", "is required"))
		return
	case strings.TrimSpace(req.Message) == "":
		s.writeError(w, r, platform.Invalid("message", "is required"))
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := c.CreateTicket(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		s.writeError(w, r, platform.Invalid("email", "is required"))
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tickets, err := c.GetTickets(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []platform.Ticket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		s.writeError(w, r, platform.Invalid("email", "is required"))
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := c.Login(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		s.writeError(w, r, platform.Failed("login", res.Message))
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		s.writeError(w, r, platform.Invalid("code", "email and code are required"))
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := c.VerifyLogin(r.Context(), req.Email, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: res.Message})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

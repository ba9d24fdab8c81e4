package server

import (
	"net/http"
	"strings"

	"github.com/krisalay/storefront-cache/platform"
)

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	res, err := s.catalog.GetStore(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		s.writeError(w, r, platform.Failed("getStore", res.Message))
		return
	}
	writeJSON(w, http.StatusOK, res.Data)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	res, err := s.catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusNotFound, errorBody{Error: res.Message})
		return
	}
	writeJSON(w, http.StatusOK, res.Data)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "page", 1, 1)
	res, err := s.catalog.GetProductReviews(r.Context(), r.PathValue("id"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		s.writeError(w, r, platform.Failed("getProductReviews", res.Message))
		return
	}
	data := res.Data
	if data == nil {
		data = []platform.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": data, "page": page, "pages": res.Pages})
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Reason string `json:"reason"`
}

// handleCreateReview validates locally, then drops the product's cached review pages so
// the new review shows up on the next read.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		s.writeError(w, r, platform.Invalid("rating", "must be between 1 and 5"))
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		s.writeError(w, r, platform.Invalid("reason", "must not be empty"))
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	productID := r.PathValue("id")
	review, err := c.CreateReview(r.Context(), productID, req.Rating, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.catalog.ClearProductReviews(review.ProductID)
	if review.ProductID != productID {
		s.catalog.ClearProductReviews(productID)
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	u, err := s.catalog.GetStoreBannerURL(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		URL *string `json:"url"`
	}
	if u != "" {
		body.URL = &u
	}
	writeJSON(w, http.StatusOK, body)
}

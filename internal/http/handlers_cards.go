package http

import (
	"net/http"
	"strings"

	"finledger/internal/core"
	"finledger/internal/ident"
)

type cardRequest struct {
	Number      string `json:"number"`
	OwnerName   string `json:"owner_name"`
	CreditLimit string `json:"credit_limit"`
	ExpiryDate  string `json:"expiry_date"`
}

type cardResponse struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	OwnerName      string `json:"owner_name"`
	LimitCents     int64  `json:"limit_cents"`
	BalanceCents   int64  `json:"balance_cents"`
	AvailableCents int64  `json:"available_cents"`
	ExpiryDate     string `json:"expiry_date"`
}

func toCardResponse(c core.CreditCard) cardResponse {
	return cardResponse{
		ID:             c.ID,
		Number:         c.Number,
		OwnerName:      c.OwnerName,
		LimitCents:     c.CreditLimit.Cents,
		BalanceCents:   c.CurrentBalance.Cents,
		AvailableCents: c.AvailableCredit().Cents,
		ExpiryDate:     c.ExpiryDate.String(),
	}
}

func (s *Server) handleListCards(w http.ResponseWriter, _ *http.Request) {
	all := s.cards.All()
	out := make([]cardResponse, len(all))
	for i, c := range all {
		out[i] = toCardResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limitCents, err := core.ParseDecimalToCents(strings.TrimSpace(req.CreditLimit))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit := core.Cents(limitCents)
	expiry, err := core.ParseDate(strings.TrimSpace(req.ExpiryDate))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	card, err := core.NewCreditCard(ident.New(ident.PrefixCard),
		sanitizeInput(req.Number), sanitizeInput(req.OwnerName), limit, expiry)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.cards.Add(card); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(card))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	// Removal of an absent card is a no-op, matching the ledger.
	s.cards.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ColorCode   string `json:"color_code"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.categories.All())
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.NewCategory(ident.New(ident.PrefixCategory),
		sanitizeInput(req.Name), sanitizeInput(req.Description), sanitizeInput(req.ColorCode))
	if err := s.categories.Add(category); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

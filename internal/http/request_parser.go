package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pocketbook/internal/core"
)

// errBadRequest marks malformed requests. It maps to 400.
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// recordRequest is the body of create and update calls. Amount accepts a
// number or a decimal string such as "12,50".
type recordRequest struct {
	Title       *string     `json:"title"`
	Amount      *core.Money `json:"amount"`
	Category    *string     `json:"category"`
	Date        *core.Date  `json:"date"`
	Description *string     `json:"description"`
	Type        *string     `json:"type"`
}

// decodeRecordRequest reads a single JSON object from the body. Field values
// that fail to parse are validation errors; anything else malformed is a bad
// request.
func decodeRecordRequest(w http.ResponseWriter, r *http.Request) (recordRequest, error) {
	var req recordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return recordRequest{}, err
		}
		if errors.Is(err, io.EOF) {
			return recordRequest{}, badRequestf("empty body")
		}
		return recordRequest{}, badRequestf("invalid JSON: %v", err)
	}
	if dec.More() {
		return recordRequest{}, badRequestf("unexpected data after JSON object")
	}
	return req, nil
}

// Draft builds a new record. A missing date means today.
func (req recordRequest) Draft(today core.Date) core.Draft {
	d := core.Draft{
		Title:       sanitizeInput(deref(req.Title)),
		Category:    sanitizeInput(deref(req.Category)),
		Description: sanitizeInput(deref(req.Description)),
		Type:        core.Kind(deref(req.Type)),
		Date:        today,
	}
	if req.Amount != nil {
		d.Amount = *req.Amount
	}
	if req.Date != nil && !req.Date.IsZero() {
		d.Date = *req.Date
	}
	return d
}

// Patch keeps only the fields present in the body.
func (req recordRequest) Patch() core.Patch {
	p := core.Patch{
		Amount: req.Amount,
		Date:   req.Date,
	}
	if req.Title != nil {
		v := sanitizeInput(*req.Title)
		p.Title = &v
	}
	if req.Category != nil {
		v := sanitizeInput(*req.Category)
		p.Category = &v
	}
	if req.Description != nil {
		v := sanitizeInput(*req.Description)
		p.Description = &v
	}
	if req.Type != nil {
		k := core.Kind(*req.Type)
		p.Type = &k
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

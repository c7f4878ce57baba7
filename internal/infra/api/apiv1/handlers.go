package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/infra/logging"
)

const (
	successBody       = "Successfully"
	idempotencyHeader = "Idempotency-Key"
	operationHeader   = "X-Operation-Id"
	maxBodyBytes      = 1 << 20
)

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func (s *Server) getBillingInformation(w http.ResponseWriter, r *http.Request) {
	info, err := s.billing.GetBillingInformation(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) putBillingInformation(w http.ResponseWriter, r *http.Request) {
	var info model.BillingInformation
	if !s.decode(w, r, &info) {
		return
	}
	if err := s.billing.UpdateBillingInformation(r.Context(), chi.URLParam(r, "account"), &info); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) getInvoiceRecipients(w http.ResponseWriter, r *http.Request) {
	rec, err := s.billing.GetInvoiceRecipients(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) putInvoiceRecipients(w http.ResponseWriter, r *http.Request) {
	var rec model.InvoiceRecipients
	if !s.decode(w, r, &rec) {
		return
	}
	if err := s.billing.UpdateInvoiceRecipients(r.Context(), chi.URLParam(r, "account"), &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) getCurrentPaymentMethod(w http.ResponseWriter, r *http.Request) {
	pm, err := s.payments.GetCurrent(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}

func (s *Server) putCurrentPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var pm model.PaymentMethod
	if !s.decode(w, r, &pm) {
		return
	}
	if err := s.payments.UpdateCurrent(r.Context(), chi.URLParam(r, "account"), &pm); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) getCurrentPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.billing.GetCurrentPlan(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) createAgreement(w http.ResponseWriter, r *http.Request) {
	var req model.AgreementRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.agreements.Create(r.Context(), chi.URLParam(r, "account"), &req, r.Header.Get(idempotencyHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(operationHeader, res.OperationID)
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    domain.CodeValidationFailed,
			Message: "Invalid request body",
			Errors:  []string{err.Error()},
		})
		return false
	}
	return true
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a use case error onto the response envelope. Untyped
// faults are logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	var body errorBody
	var status int
	switch {
	case errors.As(err, &de):
		status = statusFor(de.Kind)
		body = errorBody{Code: de.Code, Message: de.Message, Errors: de.Details}
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		body = errorBody{Code: domain.CodeResourceNotFound, Message: "Not found"}
	default:
		status = http.StatusInternalServerError
		body = errorBody{Code: domain.CodeInternal, Message: "Internal server error"}
	}
	if status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

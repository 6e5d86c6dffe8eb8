package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// maxBodyBytes 請求本文上限
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error          string          `json:"error"`
	Messages       []string        `json:"messages,omitempty"`
	Reconciliation *reconciliation `json:"reconciliation,omitempty"`
}

// reconciliation 折扣碼已發出但未扣點時，營運人員對帳需要的資料
type reconciliation struct {
	CustomerID   interface{} `json:"customerId"`
	Points       interface{} `json:"points"`
	DiscountCode interface{} `json:"discountCode"`
	RequestID    interface{} `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// writeError 錯誤 → HTTP 狀態碼
//
// SettlementFailed 必須最先判斷：它的 Cause 可能是任何錯誤。
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if de := findDomainError(err, redemption.ErrCodeSettlementFailed); de != nil {
		s.logger.Error("settlement failed, reconciliation required",
			zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "discount code was issued but points could not be deducted",
			Reconciliation: &reconciliation{
				CustomerID:   de.Context["customer_id"],
				Points:       de.Context["points"],
				DiscountCode: de.Context["discount_code"],
				RequestID:    de.Context["request_id"],
			},
		})
		return
	}

	switch {
	case isBadRequest(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: publicMessage(err)})
	case errors.Is(err, ledger.ErrCustomerNotFound), errors.Is(err, redemption.ErrRedemptionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: publicMessage(err)})
	case errors.Is(err, redemption.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: publicMessage(err)})
	case errors.Is(err, redemption.ErrIssuanceFailed):
		s.logger.Warn("discount issuance failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp := errorResponse{Error: "failed to create discount code"}
		var rejected *redemption.IssuanceRejectedError
		if errors.As(err, &rejected) {
			resp.Messages = rejected.Messages()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		shared.ErrInvalidInput,
		ledger.ErrInsufficientBalance,
		ledger.ErrInvalidCustomerID,
		ledger.ErrInvalidRequestID,
		ledger.ErrInvalidShop,
		ledger.ErrNegativePointsAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// publicMessage 可回給調用者的訊息（只用領域錯誤的 Message，不洩漏 Cause）
func publicMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return http.StatusText(http.StatusBadRequest)
}

func findDomainError(err error, code shared.ErrorCode) *shared.DomainError {
	for err != nil {
		if de, ok := err.(*shared.DomainError); ok && de.Code == code {
			return de
		}
		err = errors.Unwrap(err)
	}
	return nil
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jackyeh168/vip_points/src/internal/application/accrual"
	redemptionapp "github.com/jackyeh168/vip_points/src/internal/application/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// 平台 webhook 與 app proxy 使用的 header
const (
	HeaderShopDomain     = "X-Shopify-Shop-Domain"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// flexString 接受 JSON 字串或數字（平台的 ID 與金額兩種格式都會出現）
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ===========================
// POST /webhooks/orders/create
// ===========================

type orderPayload struct {
	ID       flexString `json:"id"`
	Customer *struct {
		ID flexString `json:"id"`
	} `json:"customer"`
	SubtotalPrice flexString `json:"subtotal_price"`
	ShopDomain    string     `json:"shop_domain"`
}

type orderResponse struct {
	Outcome    string `json:"outcome"`
	CustomerID string `json:"customerId,omitempty"`
	OrderID    string `json:"orderId,omitempty"`
	Points     int    `json:"points"`
	Balance    int    `json:"balance"`
}

// OrderCreated 訂單建立 webhook
//
// credited / not_vip / no_customer / duplicate 都回 200，平台才不會重送。
func (s *Server) OrderCreated(w http.ResponseWriter, r *http.Request) {
	var payload orderPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed order payload"})
		return
	}

	shop := strings.TrimSpace(r.Header.Get(HeaderShopDomain))
	if shop == "" {
		shop = payload.ShopDomain
	}
	event := accrual.OrderCompletedEvent{
		Shop:     shop,
		OrderID:  string(payload.ID),
		Subtotal: string(payload.SubtotalPrice),
	}
	if payload.Customer != nil {
		event.CustomerID = string(payload.Customer.ID)
	}

	result, err := s.orders.Handle(r.Context(), event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{
		Outcome:    string(result.Outcome),
		CustomerID: result.CustomerID,
		OrderID:    result.OrderID,
		Points:     result.Points,
		Balance:    result.Balance,
	})
}

// ===========================
// GET /api/vip-points
// ===========================

// PointsBalance 積分查詢；缺少 ID 或顧客不存在都回 0
func (s *Server) PointsBalance(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))
	if customerID == "" {
		writeJSON(w, http.StatusOK, map[string]int{"points": 0})
		return
	}

	balance, err := s.ledger.GetBalance(r.Context(), customerID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]int{"points": balance.Balance})
	case errors.Is(err, ledger.ErrCustomerNotFound), isBadRequest(err):
		writeJSON(w, http.StatusOK, map[string]int{"points": 0})
	default:
		s.writeError(w, r, err)
	}
}

// ===========================
// POST /redeem-points
// ===========================

type redeemRequest struct {
	CustomerID flexString      `json:"customerId"`
	Points     json.RawMessage `json:"points"`
	RequestID  string          `json:"requestId"`
}

type redeemResponse struct {
	DiscountCode string `json:"discountCode"`
	RequestID    string `json:"requestId"`
	Replayed     bool   `json:"replayed,omitempty"`
}

// RedeemPoints 兌換積分
//
// requestId 可放在本文或 Idempotency-Key header；兩者皆無時產生隨機 ID，
// 此時調用者重試會被當成新的兌換。
func (s *Server) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	points, err := parsePoints(req.Points)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	}
	if requestID == "" {
		requestID = uuid.NewString()
		s.logger.Warn("redeem request without requestId, retries will not be deduplicated",
			zap.String("customer_id", string(req.CustomerID)),
			zap.String("generated_request_id", requestID))
	}

	result, err := s.redeemer.Redeem(r.Context(), redemptionapp.RedeemCommand{
		CustomerID: strings.TrimSpace(string(req.CustomerID)),
		Points:     points,
		RequestID:  requestID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemResponse{
		DiscountCode: result.DiscountCode,
		RequestID:    result.RequestID,
		Replayed:     result.Replayed,
	})
}

// parsePoints 點數必須是正整數；接受 50 或 "50"
func parsePoints(raw json.RawMessage) (int, error) {
	var v flexString
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return 0, shared.ErrInvalidInput.WithContext("field", "points", "reason", "points must be a positive integer")
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(v)))
	if err != nil || n <= 0 {
		return 0, shared.ErrInvalidInput.WithContext("field", "points", "reason", "points must be a positive integer", "value", string(v))
	}
	return n, nil
}

// ===========================
// /admin/exclusions
// ===========================

type exclusionsResponse struct {
	Shop               string                   `json:"shop"`
	SchemaVersion      int                      `json:"schemaVersion"`
	ExcludedVariantIDs []string                 `json:"excludedVariantIds"`
	Excluded           []eligibility.CatalogRow `json:"excluded"`
	Catalog            []eligibility.CatalogRow `json:"catalog,omitempty"`
}

type exclusionsRequest struct {
	ExcludedVariantIDs []string `json:"excludedVariantIds"`
}

func (s *Server) shopFor(r *http.Request) string {
	if shop := strings.TrimSpace(r.URL.Query().Get("shop")); shop != "" {
		return shop
	}
	if shop := strings.TrimSpace(r.Header.Get(HeaderShopDomain)); shop != "" {
		return shop
	}
	return s.defaultShop
}

// GetExclusions 目前排除設定與目錄
func (s *Server) GetExclusions(w http.ResponseWriter, r *http.Request) {
	view, err := s.exclusions.Get(r.Context(), s.shopFor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exclusionsResponse{
		Shop:               view.Shop,
		SchemaVersion:      view.SchemaVersion,
		ExcludedVariantIDs: nonNil(view.ExcludedVariantIDs),
		Excluded:           view.Excluded,
		Catalog:            view.Catalog,
	})
}

// PutExclusions 覆寫排除清單
func (s *Server) PutExclusions(w http.ResponseWriter, r *http.Request) {
	var req exclusionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	shop := s.shopFor(r)
	cfg, err := s.exclusions.Put(r.Context(), shop, req.ExcludedVariantIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exclusionsResponse{
		Shop:               strings.ToLower(shop),
		SchemaVersion:      cfg.SchemaVersion,
		ExcludedVariantIDs: nonNil(cfg.ExcludedVariantIDs),
	})
}

// ===========================
// 對帳端點
// ===========================

type transactionJSON struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	PointsEarned   *int      `json:"pointsEarned"`
	PointsRedeemed *int      `json:"pointsRedeemed"`
	IdempotencyKey string    `json:"idempotencyKey"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ledgerResponse struct {
	CustomerID   string            `json:"customerId"`
	Balance      int               `json:"balance"`
	Earned       int               `json:"earned"`
	Redeemed     int               `json:"redeemed"`
	Expected     int               `json:"expected"`
	Consistent   bool              `json:"consistent"`
	Transactions []transactionJSON `json:"transactions"`
}

// CustomerLedger 餘額、交易記錄與對帳結果
func (s *Server) CustomerLedger(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")

	rec, err := s.ledger.Reconcile(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.ledger.History(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	txs := make([]transactionJSON, 0, len(history))
	for _, t := range history {
		txs = append(txs, transactionJSON{
			ID:             t.ID,
			OrderID:        t.OrderID,
			PointsEarned:   t.PointsEarned,
			PointsRedeemed: t.PointsRedeemed,
			IdempotencyKey: t.IdempotencyKey,
			CreatedAt:      t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, ledgerResponse{
		CustomerID:   rec.CustomerID,
		Balance:      rec.Balance,
		Earned:       rec.Earned,
		Redeemed:     rec.Redeemed,
		Expected:     rec.Expected,
		Consistent:   rec.Consistent,
		Transactions: txs,
	})
}

type redemptionJSON struct {
	CustomerID    string    `json:"customerId"`
	RequestID     string    `json:"requestId"`
	Shop          string    `json:"shop"`
	Points        int       `json:"points"`
	DiscountCode  string    `json:"discountCode"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UnsettledRedemptions 已發碼未扣點的兌換
func (s *Server) UnsettledRedemptions(w http.ResponseWriter, r *http.Request) {
	views, err := s.redeemer.ListUnsettled(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]redemptionJSON, 0, len(views))
	for _, v := range views {
		out = append(out, redemptionJSON(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"redemptions": out})
}

// ResumeSettlement 重新扣點
func (s *Server) ResumeSettlement(w http.ResponseWriter, r *http.Request) {
	result, err := s.redeemer.ResumeSettlement(r.Context(), chi.URLParam(r, "customerId"), chi.URLParam(r, "requestId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemResponse{
		DiscountCode: result.DiscountCode,
		RequestID:    result.RequestID,
		Replayed:     result.Replayed,
	})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

package redemption

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// codeNamespace 折扣碼 UUIDv5 命名空間（固定值，變更會讓重試產生不同的碼）
var codeNamespace = uuid.MustParse("6f1c2a7e-4d0b-5b8e-9a53-2f6e1c0d9b41")

// DefaultCodePrefix 折扣碼前綴
const DefaultCodePrefix = "VIP"

const codeHashLength = 10

// codeMarker 折扣碼推導用的 EntityID 標記
type codeMarker struct{}

// DeriveDiscountCode 由 (customerID, requestID) 推導確定性的折扣碼
//
// 格式：<prefix>-<customerID>-<10 位十六進位>
// 相同的兌換意圖永遠得到相同的碼，平台端可據此去重。
func DeriveDiscountCode(prefix string, customerID ledger.CustomerID, requestID ledger.RequestID) string {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	id := shared.NewNamedEntityID[codeMarker](codeNamespace, customerID.String()+":"+requestID.String())
	return strings.ToUpper(prefix) + "-" + customerID.String() + "-" + strings.ToUpper(id.Hex()[:codeHashLength])
}

package model

import (
	"math"
	"strings"
)

// Identity 呼叫者身份 (錢包地址)，只做比較不做解析
type Identity string

func (i Identity) IsZero() bool {
	return strings.TrimSpace(string(i)) == ""
}

func (i Identity) String() string {
	return string(i)
}

// Amount 最小貨幣單位的金額 (類似 wei)，金流路徑不使用浮點數
type Amount int64

// Add 回傳 a+b，超出 int64 範圍時 ok 為 false
func (a Amount) Add(b Amount) (sum Amount, ok bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// TotalFits 票價乘以張數不會溢位，活動的託管總額因此永遠在 int64 內
func TotalFits(price Amount, tickets int) bool {
	return tickets > 0 && price <= Amount(math.MaxInt64/int64(tickets))
}

// MarketplaceOperator 市集代替持有者轉移票券時使用的身份
const MarketplaceOperator Identity = "ledger:marketplace"

package domain

import "time"

// Product is a catalog item. Price is a whole rupiah amount; Stock is the
// persisted available quantity and never goes negative.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
	Stock    int    `json:"stock"`
}

type ProductCreateRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
	Stock    int    `json:"stock"`
}

type ProductUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	Category *string `json:"category,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Stock    *int    `json:"stock,omitempty"`
}

// Transaction is one ledger entry. The log is append-only: entries are never
// mutated or deleted once inserted, and IDs are assigned by the store in
// insertion order.
type Transaction struct {
	ID           int64     `json:"id"`
	Date         time.Time `json:"date"`
	TotalAmount  int64     `json:"totalAmount"`
	Type         string    `json:"type"`
	ItemsSummary string    `json:"itemsSummary"`
	Note         string    `json:"note"`
}

const (
	TxTypeIn       = "IN"
	TxTypeOut      = "OUT"
	TxTypeCapital  = "CAPITAL"
	TxTypeWithdraw = "WITHDRAW"
)

// IsValidTxType reports whether t is one of the four ledger entry types.
func IsValidTxType(t string) bool {
	switch t {
	case TxTypeIn, TxTypeOut, TxTypeCapital, TxTypeWithdraw:
		return true
	default:
		return false
	}
}

// StoreProfile is the singleton settings row (ID is always 1). Credentials
// are upgraded to bcrypt hashes on first successful login.
type StoreProfile struct {
	ID                int64  `json:"id"`
	StoreName         string `json:"storeName"`
	StoreAddress      string `json:"storeAddress"`
	PrinterMacAddress string `json:"printerMacAddress"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	CashierPassword   string `json:"cashierPassword"`
	LogoPath          string `json:"logoPath,omitempty"`
	DarkMode          bool   `json:"darkMode"`
}

// CartLine is transient and never persisted. The Product field is a snapshot
// taken at add time; checkout re-reads persisted stock and must not trust it.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type CartState struct {
	Lines    []CartLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
}

type CartAddRequest struct {
	ProductID int64 `json:"productId"`
}

type CartAddResponse struct {
	Added bool      `json:"added"`
	Cart  CartState `json:"cart"`
}

// Totals are the reactive ledger aggregates. They always satisfy
// CurrentBalance == TotalIncome - TotalExpense.
type Totals struct {
	TotalIncome    int64 `json:"totalIncome"`
	TotalSales     int64 `json:"totalSales"`
	TotalExpense   int64 `json:"totalExpense"`
	CurrentBalance int64 `json:"currentBalance"`
}

// StockDecrement is one checkout line's effect on persisted stock.
type StockDecrement struct {
	ProductID int64
	Quantity  int
}

type CheckoutResult struct {
	Performed   bool         `json:"performed"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Total       int64        `json:"total"`
	ItemCount   int          `json:"itemCount"`
}

type RestockRequest struct {
	Quantity int   `json:"quantity"`
	Cost     int64 `json:"cost"`
}

type RestockResult struct {
	Performed   bool         `json:"performed"`
	Product     *Product     `json:"product,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// EntryRequest records a manual ledger entry (expense, capital injection or
// cash withdrawal) outside the checkout path.
type EntryRequest struct {
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	ItemsSummary string `json:"itemsSummary"`
	Note         string `json:"note"`
}

type TopSeller struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// TrendBucket is one local calendar day of the trend window. Income and
// Quantity are the two parallel series sharing the same label.
type TrendBucket struct {
	Label    string `json:"label"`
	Income   int64  `json:"income"`
	Quantity int    `json:"quantity"`
}

type TrendReport struct {
	RangeDays   int           `json:"rangeDays"`
	Buckets     []TrendBucket `json:"buckets"`
	TotalIncome int64         `json:"totalIncome"`
}

type TrendRangeRequest struct {
	RangeDays int `json:"rangeDays"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Actor identifies the authenticated caller of a core operation. SessionID
// binds the caller to its server-side session (cart + trend range).
type Actor struct {
	SessionID string
	Username  string
	Role      string
}

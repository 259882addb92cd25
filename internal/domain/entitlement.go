package domain

import "time"

type EntitlementSource string

const (
	EntitlementSourceFree       EntitlementSource = "free"
	EntitlementSourcePurchase   EntitlementSource = "purchase"
	EntitlementSourceAdminGrant EntitlementSource = "admin_grant"
)

type Entitlement struct {
	UserID    string            `json:"user_id"`
	ProductID string            `json:"product_id"`
	Source    EntitlementSource `json:"source"`
	GrantedAt time.Time         `json:"granted_at"`
}

// Product is the catalog view this service needs. FilePath is the storage
// object key of the downloadable file; empty means nothing is attached.
type Product struct {
	ID               string
	Title            string
	IsPublished      bool
	IsFree           bool
	FilePath         string
	ProcessorPriceID string
}

func (p *Product) HasFile() bool {
	return p.FilePath != ""
}

type Profile struct {
	ID    string
	Email string
}

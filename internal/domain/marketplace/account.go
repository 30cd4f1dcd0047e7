package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

var (
	ErrAccountNotFound      = errors.New("marketplace: account not found")
	ErrAccountDisconnected  = errors.New("marketplace: account is not connected")
	ErrInvalidMarketplace   = errors.New("marketplace: invalid marketplace code")
	ErrInvalidShopName      = errors.New("marketplace: shop name cannot be empty")
	ErrMappingNotFound      = errors.New("marketplace: product mapping not found")
	ErrInvalidMappingTarget = errors.New("marketplace: mapping requires account and product IDs")
	ErrInvalidExternalID    = errors.New("marketplace: external product ID cannot be empty")
	ErrAdapterNotRegistered = errors.New("marketplace: no adapter registered for marketplace code")
)

// Code identifies an external marketplace platform
type Code string

const (
	CodeShopee Code = "SHOPEE"
	CodeLazada Code = "LAZADA"
	CodeTikTok Code = "TIKTOK"
	CodeAmazon Code = "AMAZON"
	CodeEbay   Code = "EBAY"
)

// AllCodes lists every supported marketplace code
var AllCodes = []Code{CodeShopee, CodeLazada, CodeTikTok, CodeAmazon, CodeEbay}

// IsValid returns true if the marketplace code is supported
func (c Code) IsValid() bool {
	switch c {
	case CodeShopee, CodeLazada, CodeTikTok, CodeAmazon, CodeEbay:
		return true
	}
	return false
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// ConnectionStatus represents the connection state of an account
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusError        ConnectionStatus = "ERROR"
)

// Account is the identity of one connected external store. It is owned by
// one user and referenced (never owned) by orders and sync rules.
// Credentials are opaque to the engines; only adapters interpret them.
type Account struct {
	shared.OwnedAggregateRoot
	Marketplace  Code             `gorm:"size:32;not null;index"`
	ShopName     string           `gorm:"size:255;not null"`
	Status       ConnectionStatus `gorm:"size:20;not null;default:'DISCONNECTED'"`
	Credentials  string           `gorm:"type:text"` // opaque credential blob
	LastError    string           `gorm:"size:1024"`
	LastSyncedAt *time.Time
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "marketplace_accounts"
}

// NewAccount creates a marketplace account
func NewAccount(userID uuid.UUID, marketplace Code, shopName, credentials string) (*Account, error) {
	if !marketplace.IsValid() {
		return nil, ErrInvalidMarketplace
	}
	if shopName == "" {
		return nil, ErrInvalidShopName
	}
	return &Account{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		Marketplace:        marketplace,
		ShopName:           shopName,
		Status:             ConnectionStatusConnected,
		Credentials:        credentials,
	}, nil
}

// IsConnected reports whether the account can be used for sync operations
func (a *Account) IsConnected() bool {
	return a.Status == ConnectionStatusConnected
}

// MarkSynced records a successful sync touch
func (a *Account) MarkSynced(at time.Time) {
	a.LastSyncedAt = &at
	a.LastError = ""
	a.UpdatedAt = time.Now()
}

// MarkError moves the account into the error state
func (a *Account) MarkError(message string) {
	a.Status = ConnectionStatusError
	a.LastError = message
	a.UpdatedAt = time.Now()
}

// Disconnect marks the account as disconnected
func (a *Account) Disconnect() {
	a.Status = ConnectionStatusDisconnected
	a.UpdatedAt = time.Now()
}

// AccountRepository defines persistence for marketplace accounts
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Account, error)
	FindConnected(ctx context.Context) ([]Account, error)
	FindAllForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Account, error)
	Save(ctx context.Context, account *Account) error
}

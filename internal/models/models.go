package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Product struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"         json:"id"`
	Name             string          `gorm:"not null"                         json:"name"`
	Category         string          `gorm:"not null;index"                   json:"category"`
	Description      string          `gorm:"type:text"                        json:"description"`
	Price            decimal.Decimal `gorm:"type:numeric(12,2);not null"      json:"price"`
	ImageURL         string          `gorm:"column:image_url"                 json:"image_url"`
	IsExclusiveOffer bool            `gorm:"default:false"                    json:"is_exclusive_offer"`
	IsBestSeller     bool            `gorm:"default:false"                    json:"is_best_seller"`
	CreatedAt        time.Time       `                                        json:"created_at"`
	UpdatedAt        time.Time       `                                        json:"updated_at"`
}

func (Product) TableName() string { return "products" }

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `                                json:"created_at"`
}

func (User) TableName() string { return "users" }

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"            json:"id"`
	UserID    uint   `gorm:"index;not null"        json:"user_id"`
	Token     string `gorm:"uniqueIndex;not null"  json:"-"`
	JTI       string `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt int64  `gorm:"not null"              json:"expires_at"`
	Revoked   bool   `gorm:"default:false"         json:"revoked"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

type Order struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	UserID         uint            `gorm:"index;not null"                json:"user_id"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"subtotal"`
	Shipping       decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"shipping"`
	Tax            decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"tax"`
	GrandTotal     decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"grand_total"`
	Status         string          `gorm:"not null;index"                json:"status"`
	IdempotencyKey string          `gorm:"uniqueIndex;not null"          json:"-"`
	OrderDate      time.Time       `gorm:"not null;index"                json:"order_date"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"                json:"updated_at"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID"            json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID          uint            `gorm:"primaryKey"                    json:"id"`
	OrderID     uint            `gorm:"index;not null"                json:"order_id"`
	ProductID   uint            `gorm:"not null"                      json:"product_id"`
	ProductName string          `gorm:"not null"                      json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"unit_price"`
	Quantity    int             `gorm:"not null;check:quantity>0"     json:"quantity"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"line_total"`
}

func (OrderItem) TableName() string { return "order_items" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Product{}, &User{}, &RefreshToken{}, &Order{}, &OrderItem{})
}

package models

// Product represents a single catalog entry. The backend owns the record;
// the admin holds a read-only copy until the next full reload.
type Product struct {
	ID            string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description" validate:"required"`
	Price         float64 `json:"price" validate:"gte=0"`
	Stock         int     `json:"stock" validate:"gte=0"`
	FeaturedImage string  `json:"featuredImage" validate:"omitempty"`
}

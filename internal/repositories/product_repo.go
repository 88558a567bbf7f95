package repositories

import (
	"context"

	"catalogadmin/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// UploadImage stores the file on the backend and returns the
	// server-relative path to use as FeaturedImage.
	UploadImage(ctx context.Context, filename string, data []byte) (string, error)
}

package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sirupsen/logrus"

	"catalogadmin/internal/models"
	"catalogadmin/internal/notify"
)

// APIProductRepository is a ProductRepository backed by the remote catalog
// REST API. Transport failures are surfaced as a toast through the
// notifier, logged, and returned wrapped so callers can stop further
// steps. Successful mutations emit a success toast. No call is retried.
type APIProductRepository struct {
	baseURL  string
	client   *http.Client
	notifier notify.Notifier
	log      *logrus.Logger
}

// NewAPIProductRepository creates a repository against the given base URL,
// e.g. "http://localhost:3000/api/products".
func NewAPIProductRepository(baseURL string, client *http.Client, notifier notify.Notifier, log *logrus.Logger) *APIProductRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &APIProductRepository{
		baseURL:  baseURL,
		client:   client,
		notifier: notifier,
		log:      log,
	}
}

// GetAll retrieves the full product collection.
func (r *APIProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL, nil, &products); err != nil {
		r.notifier.Error("Failed to load products")
		r.log.WithError(err).Error("catalog list request failed")
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *APIProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.doJSON(ctx, http.MethodGet, r.baseURL+"/"+id, nil, &product); err != nil {
		r.notifier.Error("Failed to load product")
		r.log.WithError(err).WithField("product_id", id).Error("catalog get request failed")
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create posts a new product. The backend assigns the ID, which is written
// back into the given product.
func (r *APIProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.doJSON(ctx, http.MethodPost, r.baseURL, product, product); err != nil {
		r.notifier.Error("Failed to create product")
		r.log.WithError(err).Error("catalog create request failed")
		return fmt.Errorf("failed to create product: %w", err)
	}
	r.notifier.Success("Product created successfully")
	return nil
}

// Update resends all fields of an existing product.
func (r *APIProductRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.doJSON(ctx, http.MethodPut, r.baseURL+"/"+product.ID, product, product); err != nil {
		r.notifier.Error("Failed to update product")
		r.log.WithError(err).WithField("product_id", product.ID).Error("catalog update request failed")
		return fmt.Errorf("failed to update product with ID %s: %w", product.ID, err)
	}
	r.notifier.Success("Product updated successfully")
	return nil
}

// Delete removes a product by its ID.
func (r *APIProductRepository) Delete(ctx context.Context, id string) error {
	if err := r.doJSON(ctx, http.MethodDelete, r.baseURL+"/"+id, nil, nil); err != nil {
		r.notifier.Error("Failed to delete product")
		r.log.WithError(err).WithField("product_id", id).Error("catalog delete request failed")
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	r.notifier.Success("Product deleted successfully")
	return nil
}

// UploadImage sends the file as a multipart request and returns the
// server-relative path. Failures are logged but intentionally produce no
// toast; the caller decides whether to abort the surrounding flow.
func (r *APIProductRepository) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result struct {
		FilePath string `json:"filePath"`
	}
	if err := r.send(req, &result); err != nil {
		r.log.WithError(err).WithField("filename", filename).Error("image upload failed")
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return result.FilePath, nil
}

func (r *APIProductRepository) doJSON(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.send(req, out)
}

func (r *APIProductRepository) send(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("catalog API returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

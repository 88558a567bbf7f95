package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"catalogadmin/internal/models"
)

// Config holds the catalog backend settings. An empty DatabaseURL selects
// an in-memory sqlite database.
type Config struct {
	DatabaseURL string
	UploadDir   string
}

// Server is a stand-in for the remote catalog backend: the plain CRUD
// REST surface the admin talks to, plus a multipart upload endpoint. It
// backs local development and the integration tests.
type Server struct {
	db        *gorm.DB
	log       *logrus.Logger
	uploadDir string
	validate  *validator.Validate
}

// New opens the database, runs the migration, and prepares the upload
// directory.
func New(cfg Config, log *logrus.Logger) (*Server, error) {
	var dialector gorm.Dialector
	if cfg.DatabaseURL != "" {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open("file::memory:?cache=shared")
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate catalog database: %w", err)
	}
	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &Server{
		db:        db,
		log:       log,
		uploadDir: cfg.UploadDir,
		validate:  validator.New(),
	}, nil
}

// RegisterRoutes mounts the catalog REST surface on the given router.
func (s *Server) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", s.handleList)
	products.Post("/", s.handleCreate)
	products.Post("/upload", s.handleUpload)
	products.Get("/:id", s.handleGet)
	products.Put("/:id", s.handleUpdate)
	products.Delete("/:id", s.handleDelete)
}

func (s *Server) handleList(c *fiber.Ctx) error {
	var products []models.Product
	if err := s.db.Find(&products).Error; err != nil {
		s.log.WithError(err).Error("failed to list products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
		})
	}
	return c.JSON(products)
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	id := c.Params("id")
	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product with ID %s not found", id),
			})
		}
		s.log.WithError(err).Error("failed to get product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
		})
	}
	return c.JSON(product)
}

func (s *Server) handleCreate(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	product.ID = uuid.New().String()
	if err := s.validate.Struct(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	if err := s.db.Create(&product).Error; err != nil {
		s.log.WithError(err).Error("failed to create product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create product",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")
	var existing models.Product
	if err := s.db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product with ID %s not found", id),
			})
		}
		s.log.WithError(err).Error("failed to load product for update")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update product",
		})
	}

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	product.ID = id
	if err := s.validate.Struct(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	if err := s.db.Save(&product).Error; err != nil {
		s.log.WithError(err).Error("failed to update product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update product",
		})
	}
	return c.JSON(product)
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	res := s.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		s.log.WithError(res.Error).Error("failed to delete product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete product",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", id),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "A file field is required",
		})
	}
	src, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded file",
		})
	}
	defer src.Close()

	name := uuid.New().String() + filepath.Ext(fh.Filename)
	dst, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		s.log.WithError(err).Error("failed to store uploaded file")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not store uploaded file",
		})
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		s.log.WithError(err).Error("failed to store uploaded file")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not store uploaded file",
		})
	}

	return c.JSON(fiber.Map{"filePath": "/uploads/" + name})
}

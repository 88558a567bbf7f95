package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"catalogadmin/internal/models"
	"catalogadmin/internal/repositories"
)

// FormState tracks where a form session is in its lifecycle.
type FormState int

const (
	FormLoading FormState = iota
	FormEditing
	FormSubmitting
)

// Field names used by the form and its templates.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldStock       = "stock"
)

// FormFields lists the validated fields in display order.
var FormFields = []string{FieldName, FieldDescription, FieldPrice, FieldStock}

const maxImageBytes = 2 * 1024 * 1024

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission is still running.
var ErrSubmitInFlight = errors.New("submission already in progress")

type fieldRule struct {
	tag     string
	message string
}

// Create and edit share the same rule set.
var formRules = map[string][]fieldRule{
	FieldName:        {{"required", "Product name is required"}},
	FieldDescription: {{"required", "Description is required"}},
	FieldPrice: {
		{"required", "Price is required"},
		{"numeric", "Price must be a number"},
		{"gte=0", "Price cannot be negative"},
	},
	FieldStock: {
		{"required", "Stock is required"},
		{"numeric", "Stock must be a number"},
		{"integer", "Stock must be a whole number"},
		{"gte=0", "Stock cannot be negative"},
	},
}

var validate = validator.New()

// SelectedFile is the transient upload artifact: the chosen file is kept
// in memory until submission converts it into a server path.
type SelectedFile struct {
	Name string
	Data []byte
}

// FormSession is the create/edit state machine. Presence of a product ID
// selects edit mode. Field errors are gated by the touched set; Submit
// marks every field touched and is blocked while any field is invalid.
type FormSession struct {
	repo repositories.ProductRepository
	mq   EventPublisher
	log  *logrus.Logger

	productID      string
	state          FormState
	values         map[string]string
	prefilledImage string
	touched        map[string]bool

	file      *SelectedFile
	fileError string
}

// NewFormSession creates a session. An empty productID selects create
// mode; otherwise the session starts in the loading state until Prefill
// resolves.
func NewFormSession(repo repositories.ProductRepository, mq EventPublisher, log *logrus.Logger, productID string) *FormSession {
	state := FormEditing
	if productID != "" {
		state = FormLoading
	}
	return &FormSession{
		repo:      repo,
		mq:        mq,
		log:       log,
		productID: productID,
		state:     state,
		values: map[string]string{
			FieldName:        "",
			FieldDescription: "",
			FieldPrice:       "0",
			FieldStock:       "0",
		},
		touched: make(map[string]bool),
	}
}

// Prefill fetches the product in edit mode and fills all fields from the
// result. A failed fetch is logged and otherwise ignored; the session
// drops into the editing state either way.
func (s *FormSession) Prefill(ctx context.Context) {
	if s.productID == "" {
		return
	}
	product, err := s.repo.GetByID(ctx, s.productID)
	if err != nil {
		s.log.WithError(err).WithField("product_id", s.productID).Error("form prefill failed")
		s.state = FormEditing
		return
	}
	s.values[FieldName] = product.Name
	s.values[FieldDescription] = product.Description
	s.values[FieldPrice] = strconv.FormatFloat(product.Price, 'f', -1, 64)
	s.values[FieldStock] = strconv.Itoa(product.Stock)
	s.prefilledImage = product.FeaturedImage
	s.state = FormEditing
}

// State returns the current lifecycle state.
func (s *FormSession) State() FormState {
	return s.state
}

// EditMode reports whether the session updates an existing product.
func (s *FormSession) EditMode() bool {
	return s.productID != ""
}

// ProductID returns the route-supplied identifier, empty in create mode.
func (s *FormSession) ProductID() string {
	return s.productID
}

// SetValue stores a field value without touching it.
func (s *FormSession) SetValue(field, value string) {
	s.values[field] = value
}

// Value returns the current value of a field.
func (s *FormSession) Value(field string) string {
	return s.values[field]
}

// Touch marks a field as interacted with, enabling its error display.
func (s *FormSession) Touch(field string) {
	s.touched[field] = true
}

// SelectFile records the chosen upload and clears any prior file error.
func (s *FormSession) SelectFile(name string, data []byte) {
	s.file = &SelectedFile{Name: name, Data: data}
	s.fileError = ""
}

// FileError returns the current upload constraint error, if any.
func (s *FormSession) FileError() string {
	return s.fileError
}

// FieldError returns the first failing rule message for a field, or empty
// when the field is valid or has not been touched yet.
func (s *FormSession) FieldError(field string) string {
	if !s.touched[field] {
		return ""
	}
	return s.fieldError(field)
}

// Valid reports whether every field passes its rules, regardless of the
// touched set.
func (s *FormSession) Valid() bool {
	for field := range formRules {
		if s.fieldError(field) != "" {
			return false
		}
	}
	return true
}

func (s *FormSession) fieldError(field string) string {
	value := s.values[field]
	for _, rule := range formRules[field] {
		if !ruleHolds(value, rule.tag) {
			return rule.message
		}
	}
	return ""
}

func ruleHolds(value, tag string) bool {
	if tag == "integer" {
		if value == "" {
			return true
		}
		_, err := strconv.Atoi(value)
		return err == nil
	}
	if strings.HasPrefix(tag, "gte") {
		// Bound checks apply to the parsed number; unparsable input is
		// already reported by the numeric rule.
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return true
		}
		return validate.Var(f, tag) == nil
	}
	if tag != "required" {
		tag = "omitempty," + tag
	}
	return validate.Var(value, tag) == nil
}

func (s *FormSession) checkFile() string {
	if s.file == nil {
		return ""
	}
	if len(s.file.Data) > maxImageBytes {
		return "Image must be 2MB or smaller"
	}
	mt := mimetype.Detect(s.file.Data)
	if !mt.Is("image/jpeg") && !mt.Is("image/png") {
		return "Only JPG and PNG images are supported"
	}
	return ""
}

// Submit runs validation, the optional image upload, and the create or
// update call, in that order. It reports true when the caller should
// navigate back to the product list. Validation and file-constraint
// failures keep the session in the editing state without issuing any
// network call; a failed upload skips the save.
func (s *FormSession) Submit(ctx context.Context) (bool, error) {
	if s.state == FormSubmitting {
		return false, ErrSubmitInFlight
	}

	for field := range formRules {
		s.touched[field] = true
	}
	if !s.Valid() {
		return false, nil
	}
	if msg := s.checkFile(); msg != "" {
		s.fileError = msg
		return false, nil
	}
	s.fileError = ""

	s.state = FormSubmitting
	defer func() { s.state = FormEditing }()

	featured := s.prefilledImage
	if s.file != nil {
		path, err := s.repo.UploadImage(ctx, s.file.Name, s.file.Data)
		if err != nil {
			return false, err
		}
		featured = path
	}

	price, _ := strconv.ParseFloat(s.values[FieldPrice], 64)
	stock, _ := strconv.Atoi(s.values[FieldStock])
	product := models.Product{
		Name:          s.values[FieldName],
		Description:   s.values[FieldDescription],
		Price:         price,
		Stock:         stock,
		FeaturedImage: featured,
	}

	if s.productID != "" {
		product.ID = s.productID
		if err := s.repo.Update(ctx, &product); err != nil {
			s.log.WithError(err).WithField("product_id", s.productID).Error("product update failed")
			return false, err
		}
		publishEvent(s.mq, s.log, "updated", product.ID, product.Name)
	} else {
		if err := s.repo.Create(ctx, &product); err != nil {
			s.log.WithError(err).Error("product create failed")
			return false, err
		}
		publishEvent(s.mq, s.log, "created", product.ID, product.Name)
	}
	return true, nil
}

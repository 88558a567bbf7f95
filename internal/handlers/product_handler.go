package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"catalogadmin/internal/models"
	"catalogadmin/internal/notify"
	"catalogadmin/internal/repositories"
	"catalogadmin/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ProductHandler serves the admin pages: the filterable, sortable product
// list and the create/edit form.
type ProductHandler struct {
	list        *services.ListView
	repo        repositories.ProductRepository
	mq          services.EventPublisher
	center      *notify.Center
	log         *logrus.Logger
	imageOrigin string
}

// NewProductHandler creates a new ProductHandler. The event publisher may
// be nil.
func NewProductHandler(list *services.ListView, repo repositories.ProductRepository, mq services.EventPublisher, center *notify.Center, log *logrus.Logger, imageOrigin string) *ProductHandler {
	return &ProductHandler{
		list:        list,
		repo:        repo,
		mq:          mq,
		center:      center,
		log:         log,
		imageOrigin: imageOrigin,
	}
}

// RegisterRoutes registers the admin routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleList)
	router.Get("/add", h.HandleAddForm)
	router.Post("/add", h.HandleAddSubmit)
	router.Get("/edit/:id", h.HandleEditForm)
	router.Post("/edit/:id", h.HandleEditSubmit)
	router.Post("/delete/:id", h.HandleDelete)
}

type productRow struct {
	models.Product
	ImageURL   string
	OutOfStock bool
}

// HandleList renders the product list. Filters come from query
// parameters and narrow the in-memory snapshot; the snapshot itself is
// only refetched when missing or invalidated by a mutation.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	if !h.list.Loaded() {
		if err := h.list.Load(c.Context()); err != nil {
			h.log.WithError(err).Error("initial product load failed")
		}
	}

	filters := services.Filters{Name: c.Query("name")}
	minRaw, maxRaw := c.Query("min_price"), c.Query("max_price")
	if f, err := strconv.ParseFloat(minRaw, 64); err == nil {
		filters.MinPrice = &f
	}
	if f, err := strconv.ParseFloat(maxRaw, 64); err == nil {
		filters.MaxPrice = &f
	}
	h.list.SetFilters(filters)

	// Sort state comes entirely from the URL, so reloading a sorted page
	// never advances the cycle.
	sortCol, sortDir := parseSort(c.Query("sort"), c.Query("dir"))
	h.list.SetSort(sortCol, sortDir)

	visible := h.list.Visible()
	rows := make([]productRow, 0, len(visible))
	for _, p := range visible {
		row := productRow{Product: p, OutOfStock: services.OutOfStock(p)}
		if p.FeaturedImage != "" {
			row.ImageURL = h.imageOrigin + p.FeaturedImage
		}
		rows = append(rows, row)
	}

	sortLinks := make(map[string]string, 4)
	for _, col := range []services.SortColumn{services.SortName, services.SortDescription, services.SortPrice, services.SortStock} {
		q := url.Values{}
		if filters.Name != "" {
			q.Set("name", filters.Name)
		}
		if minRaw != "" {
			q.Set("min_price", minRaw)
		}
		if maxRaw != "" {
			q.Set("max_price", maxRaw)
		}
		nextCol, nextDir := services.NextSort(sortCol, sortDir, col)
		if nextCol != services.SortNone {
			q.Set("sort", string(nextCol))
			q.Set("dir", dirParam(nextDir))
		}
		link := "/"
		if enc := q.Encode(); enc != "" {
			link = "/?" + enc
		}
		sortLinks[string(col)] = link
	}

	arrow := ""
	switch sortDir {
	case services.SortAscending:
		arrow = "▲"
	case services.SortDescending:
		arrow = "▼"
	}

	return h.render(c, "list.html", fiber.Map{
		"Rows":      rows,
		"Name":      filters.Name,
		"MinPrice":  minRaw,
		"MaxPrice":  maxRaw,
		"SortLinks": sortLinks,
		"SortCol":   string(sortCol),
		"SortArrow": arrow,
	})
}

// parseSort maps the sort/dir query pair onto a sort state. Unknown
// columns and missing pairs mean unsorted; a recognized column without a
// valid direction defaults to ascending.
func parseSort(col, dir string) (services.SortColumn, services.SortDirection) {
	switch c := services.SortColumn(col); c {
	case services.SortName, services.SortDescription, services.SortPrice, services.SortStock:
		if dir == "desc" {
			return c, services.SortDescending
		}
		return c, services.SortAscending
	}
	return services.SortNone, services.SortUnsorted
}

func dirParam(dir services.SortDirection) string {
	if dir == services.SortDescending {
		return "desc"
	}
	return "asc"
}

// HandleDelete deletes a product and redirects to the list. Outcomes are
// reported through toasts; a failed delete leaves the list unchanged.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.list.Delete(c.Context(), id); err != nil {
		h.log.WithError(err).WithField("product_id", id).Error("delete failed")
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleAddForm renders an empty create form.
func (h *ProductHandler) HandleAddForm(c *fiber.Ctx) error {
	session := services.NewFormSession(h.repo, h.mq, h.log, "")
	return h.renderForm(c, session)
}

// HandleAddSubmit validates and creates a product.
func (h *ProductHandler) HandleAddSubmit(c *fiber.Ctx) error {
	session := services.NewFormSession(h.repo, h.mq, h.log, "")
	return h.submit(c, session)
}

// HandleEditForm renders the form prefilled from the fetched product.
func (h *ProductHandler) HandleEditForm(c *fiber.Ctx) error {
	session := services.NewFormSession(h.repo, h.mq, h.log, c.Params("id"))
	session.Prefill(c.Context())
	return h.renderForm(c, session)
}

// HandleEditSubmit validates and updates an existing product. The prefill
// runs first so an unchanged image keeps its stored path.
func (h *ProductHandler) HandleEditSubmit(c *fiber.Ctx) error {
	session := services.NewFormSession(h.repo, h.mq, h.log, c.Params("id"))
	session.Prefill(c.Context())
	return h.submit(c, session)
}

func (h *ProductHandler) submit(c *fiber.Ctx, session *services.FormSession) error {
	for _, field := range services.FormFields {
		session.SetValue(field, c.FormValue(field))
	}
	if fh, err := c.FormFile("image"); err == nil && fh.Size > 0 {
		file, err := fh.Open()
		if err != nil {
			h.log.WithError(err).Error("failed to open uploaded file")
			return h.renderForm(c, session)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			h.log.WithError(err).Error("failed to read uploaded file")
			return h.renderForm(c, session)
		}
		session.SelectFile(fh.Filename, data)
	}

	navigate, err := session.Submit(c.Context())
	if err != nil {
		h.log.WithError(err).Error("form submission failed")
	}
	if !navigate {
		return h.renderForm(c, session)
	}
	h.list.Invalidate()
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *ProductHandler) renderForm(c *fiber.Ctx, session *services.FormSession) error {
	values := make(map[string]string, len(services.FormFields))
	errs := make(map[string]string, len(services.FormFields))
	for _, field := range services.FormFields {
		values[field] = session.Value(field)
		errs[field] = session.FieldError(field)
	}

	action := "/add"
	title := "Add Product"
	if session.EditMode() {
		action = "/edit/" + session.ProductID()
		title = "Edit Product"
	}
	return h.render(c, "form.html", fiber.Map{
		"Title":     title,
		"Action":    action,
		"EditMode":  session.EditMode(),
		"Values":    values,
		"Errors":    errs,
		"FileError": session.FileError(),
	})
}

func (h *ProductHandler) render(c *fiber.Ctx, name string, data fiber.Map) error {
	data["Toasts"] = h.center.Drain()

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.WithError(err).WithField("template", name).Error("template render failed")
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

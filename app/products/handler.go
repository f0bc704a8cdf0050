package products

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mytheresa/product-api/app/api"
	"github.com/mytheresa/product-api/app/notify"
	"github.com/mytheresa/product-api/models"
	"go.uber.org/zap"
)

const welcomePage = "<h3>Welcome to the Product API</h3><ul>" +
	"<li>Create Product [POST]: '/product'</li>" +
	"<li>Get Product [GET]: '/product/[id]'</li>" +
	"<li>All Products [GET]: '/product'</li>" +
	"<li>Update Product [PUT]: '/product/[id]'</li>" +
	"<li>Delete Product [DELETE]: '/product/[id]'</li></ul>"

const (
	msgHomePage  = "Home Page Visitor!!"
	msgCreated   = "New Product Added!"
	msgListed    = "User requesting all products!"
	msgRequested = "User requested Product %s"
	msgUpdated   = "Updated Product!"
	msgDeleted   = "User deleted Product %s"
)

var errInvalidID = errors.New("invalid product id")

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type ProductStore interface {
	Create(ctx context.Context, f models.ProductFields) (*models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetAll(ctx context.Context, page models.Page) ([]models.Product, error)
	Update(ctx context.Context, id uint, f models.ProductFields) (*models.Product, error)
	Delete(ctx context.Context, id uint) (*models.Product, error)
}

type Handler struct {
	repo     ProductStore
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewHandler(r ProductStore, n notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		repo:     r,
		notifier: n,
		logger:   logger,
	}
}

// Routes mounts the product API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleWelcome)
	r.Route("/product", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	h.notifier.Notify(r.Context(), msgHomePage)
	render.HTML(w, r, welcomePage)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := FromExternal(r.Body)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	product, err := h.repo.Create(r.Context(), in.Fields())
	if err != nil {
		h.fail(w, r, err, "failed to create product")
		return
	}

	h.notifier.Notify(r.Context(), msgCreated)
	api.JSON(w, r, http.StatusCreated, ToExternal(*product))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.notifier.Notify(r.Context(), msgListed)

	res, err := h.repo.GetAll(r.Context(), parsePage(r))
	if err != nil {
		h.fail(w, r, err, "failed to get products")
		return
	}

	api.JSON(w, r, http.StatusOK, ToExternalList(res))
}

// HandleGet notifies before the id is validated, so lookups that end in
// 400 or 404 are still reported.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	h.notifier.Notify(r.Context(), fmt.Sprintf(msgRequested, rawID))

	id, err := parseID(rawID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to retrieve product")
		return
	}

	api.JSON(w, r, http.StatusOK, ToExternal(*product))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to retrieve product")
		return
	}

	in, err := FromExternal(r.Body)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	product, err := h.repo.Update(r.Context(), id, in.Fields())
	if err != nil {
		h.fail(w, r, err, "failed to update product")
		return
	}

	if product.Name != "" {
		h.notifier.Notify(r.Context(), msgUpdated)
	}
	api.JSON(w, r, http.StatusOK, ToExternal(*product))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	h.notifier.Notify(r.Context(), fmt.Sprintf(msgDeleted, rawID))

	id, err := parseID(rawID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	product, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to delete product")
		return
	}

	api.JSON(w, r, http.StatusOK, ToExternal(*product))
}

// fail maps err to a response. internalMsg is what the client sees for
// errors that are not the caller's fault.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, errInvalidID),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrInvalidBody):
		api.RenderError(w, r, api.ErrBadRequest(err))
	case errors.Is(err, models.ErrProductNotFound):
		api.RenderError(w, r, api.ErrNotFound(err))
	case errors.Is(err, models.ErrDuplicateName):
		api.RenderError(w, r, api.ErrConflict(err))
	default:
		h.logger.Error(internalMsg,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		api.RenderError(w, r, api.ErrInternal(err, internalMsg))
	}
}

// parseID accepts positive ids that fit the BIGSERIAL key column.
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// parsePage reads optional offset/limit query params. Without either of
// them the whole table is listed.
func parsePage(r *http.Request) models.Page {
	q := r.URL.Query()
	if !q.Has("offset") && !q.Has("limit") {
		return models.Page{}
	}

	page := models.Page{Limit: defaultPageLimit}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil && o >= 0 {
		page.Offset = o
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		page.Limit = min(max(l, 1), maxPageLimit)
	}
	return page
}

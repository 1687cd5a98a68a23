package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/inventory-core/internal/core/domain"
	"github.com/example/inventory-core/internal/core/service"
)

type HTTPHandler struct {
	inventory *service.InventoryService
}

func NewHTTPHandler(inventory *service.InventoryService) *HTTPHandler {
	return &HTTPHandler{inventory: inventory}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)
	mux.HandleFunc("GET /api/products/{id}/inventory", h.GetInventoryStatus)
	mux.HandleFunc("POST /api/products/{id}/inventory/adjust", h.AdjustInventory)
	mux.HandleFunc("GET /api/products/{id}/inventory/transactions", h.ListTransactions)
}

type ImageRequest struct {
	URL          string `json:"url"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder int    `json:"display_order"`
}

type CreateProductRequest struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    *string         `json:"category_id,omitempty"`
	Attributes    json.RawMessage `json:"attributes,omitempty"`
	Images        []ImageRequest  `json:"images,omitempty"`
}

type UpdateProductRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *string         `json:"category_id,omitempty"`
	IsActive    bool            `json:"is_active"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
	Version     *int64          `json:"version,omitempty"`
}

type AdjustInventoryRequest struct {
	Type     domain.TransactionType `json:"type"`
	Quantity int                    `json:"quantity"`
	Reason   *string                `json:"reason,omitempty"`
}

type ImageResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder int    `json:"display_order"`
}

type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    *string         `json:"category_id,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int64           `json:"version"`
	Attributes    json.RawMessage `json:"attributes,omitempty"`
	Images        []ImageResponse `json:"images"`
}

type ProductPageResponse struct {
	Items      []ProductResponse `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

type InventoryStatusResponse struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	SKU          string `json:"sku"`
	CurrentStock int    `json:"current_stock"`
	IsLowStock   bool   `json:"is_low_stock"`
}

type TransactionResponse struct {
	ID        string                 `json:"id"`
	ProductID string                 `json:"product_id"`
	Type      domain.TransactionType `json:"type"`
	Quantity  int                    `json:"quantity"`
	Reason    *string                `json:"reason,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	images := make([]ImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, ImageResponse{
			ID:           img.ID,
			URL:          img.URL,
			IsPrimary:    img.IsPrimary,
			DisplayOrder: img.DisplayOrder,
		})
	}
	return ProductResponse{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CategoryID:    p.CategoryID,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
		Attributes:    p.Attributes,
		Images:        images,
	}
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	in := service.CreateProductInput{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
		Attributes:    req.Attributes,
	}
	for _, img := range req.Images {
		in.Images = append(in.Images, service.ImageInput(img))
	}

	p, err := h.inventory.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.inventory.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	in := service.ListProductsInput{
		SearchTerm: q.Get("search"),
		Page:       1,
		PageSize:   10,
	}
	if v := q.Get("page"); v != "" {
		in.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("page_size"); v != "" {
		in.PageSize, _ = strconv.Atoi(v)
	}
	if v := q.Get("category_id"); v != "" {
		in.CategoryID = &v
	}
	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "is_active must be a boolean"})
			return
		}
		in.IsActive = &active
	}

	page, err := h.inventory.ListProducts(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ProductPageResponse{
		Items:      make([]ProductResponse, 0, len(page.Items)),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
	}
	for i := range page.Items {
		resp.Items = append(resp.Items, toProductResponse(&page.Items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.inventory.UpdateProduct(r.Context(), r.PathValue("id"), service.UpdateProductInput{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		CategoryID:      req.CategoryID,
		IsActive:        req.IsActive,
		Attributes:      req.Attributes,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req AdjustInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.inventory.AdjustInventory(r.Context(), r.PathValue("id"), service.AdjustInventoryInput{
		Type:     req.Type,
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *HTTPHandler) GetInventoryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.inventory.GetInventoryStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InventoryStatusResponse{
		ProductID:    status.ProductID,
		ProductName:  status.ProductName,
		SKU:          status.SKU,
		CurrentStock: status.CurrentStock,
		IsLowStock:   status.IsLowStock,
	})
}

func (h *HTTPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.inventory.ListTransactions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		resp = append(resp, TransactionResponse{
			ID:        txn.ID,
			ProductID: txn.ProductID,
			Type:      txn.Type,
			Quantity:  txn.Quantity,
			Reason:    txn.Reason,
			CreatedAt: txn.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrDuplicateSKU):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/safar/go-marketplace/internal/cart"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/earnings"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/order"
	"github.com/safar/go-marketplace/internal/pricing"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

type app struct {
	db     *sql.DB
	guest  *cart.GuestStore
	authed *cart.PostgresStore
	merger *cart.Merger
	ledger *earnings.Ledger
	policy pricing.Policy
}

func sellerOrdersSource(db *sql.DB) earnings.OrdersSource {
	return func(ctx context.Context, sellerID int64) ([]models.Order, error) {
		return store.ListSellerEarningsOrders(ctx, db, sellerID)
	}
}

// Identity is header-carried: authentication happens upstream and the
// handlers only consume the pre-authorized result. A request with neither
// a user nor a session identity gets a fresh session handle minted and
// echoed back.
func userID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}

func sellerID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.Header.Get("X-Seller-ID"), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}

// cartAccess picks the backend once per request: authenticated identity
// wins, anything else is a guest session. The selection is the only place
// the two cart worlds are told apart outside the merger.
func (a *app) cartAccess(w http.ResponseWriter, r *http.Request) (cart.Store, cart.Owner) {
	if id := userID(r); id > 0 {
		return a.authed, cart.UserOwner(id)
	}

	session := r.Header.Get("X-Session-ID")
	if session == "" {
		session = uuid.NewString()
		w.Header().Set("X-Session-ID", session)
	}
	return a.guest, cart.GuestOwner(session)
}

func (a *app) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s, owner := a.cartAccess(w, r)

	c, err := s.Load(r.Context(), owner)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (a *app) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	s, owner := a.cartAccess(w, r)

	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := store.GetProduct(r.Context(), a.db, req.ProductID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c, err := s.AddLine(r.Context(), owner, cart.SnapshotOf(*product), req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (a *app) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	s, owner := a.cartAccess(w, r)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := s.UpdateQuantity(r.Context(), owner, productID, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (a *app) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s, owner := a.cartAccess(w, r)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	c, err := s.RemoveLine(r.Context(), owner, productID)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (a *app) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s, owner := a.cartAccess(w, r)

	if err := s.Clear(r.Context(), owner); err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func (a *app) handleMergeCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	session := r.Header.Get("X-Session-ID")
	if uid == 0 || session == "" {
		respondError(w, http.StatusBadRequest, "Merge requires both a user and a session identity")
		return
	}

	merged, err := a.merger.Merge(r.Context(), session, uid)
	if err != nil {
		if errors.Is(err, cart.ErrMergeConflict) {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"cart":    merged,
				"warning": "some guest cart lines could not be merged",
			})
			return
		}
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"cart": merged})
}

func (a *app) handleCartTotals(w http.ResponseWriter, r *http.Request) {
	s, owner := a.cartAccess(w, r)

	c, err := s.Load(r.Context(), owner)
	if err != nil {
		respondCartError(w, err)
		return
	}

	var promo *models.PromoCode
	if code := r.URL.Query().Get("promo"); code != "" {
		promo, err = store.GetPromoCode(r.Context(), a.db, code)
		if err != nil && !errors.Is(err, database.ErrPromoNotFound) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// An unknown code simply contributes no discount.
	}

	respondJSON(w, http.StatusOK, pricing.ComputeTotals(c, promo, a.policy))
}

func (a *app) handleCheckout(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == 0 {
		respondError(w, http.StatusUnauthorized, "Checkout requires an authenticated user")
		return
	}

	orders, err := store.CheckoutCart(r.Context(), a.db, uid)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, database.ErrInsufficientStock):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, database.ErrProductNotFound):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusCreated, orders)
}

func (a *app) handleListSellerOrders(w http.ResponseWriter, r *http.Request) {
	sid := sellerID(r)
	if sid == 0 {
		respondError(w, http.StatusUnauthorized, "Seller identity required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	page, err := store.ListSellerOrders(r.Context(), a.db, sid, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (a *app) handleGetSellerOrder(w http.ResponseWriter, r *http.Request) {
	sid := sellerID(r)
	if sid == 0 {
		respondError(w, http.StatusUnauthorized, "Seller identity required")
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	o, err := store.GetSellerOrder(r.Context(), a.db, sid, orderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (a *app) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	sid := sellerID(r)
	if sid == 0 {
		respondError(w, http.StatusUnauthorized, "Seller identity required")
		return
	}

	var req struct {
		OrderID        int64  `json:"order_id"`
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown order status")
		return
	}

	o, err := store.UpdateOrderStatus(r.Context(), a.db, sid, req.OrderID, target, req.TrackingNumber)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, order.ErrNotOrderSeller):
			respondError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, order.ErrIllegalTransition),
			errors.Is(err, order.ErrTransitionConflict):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, order.ErrMissingTrackingNumber):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (a *app) handleSellerEarnings(w http.ResponseWriter, r *http.Request) {
	sid := sellerID(r)
	if sid == 0 {
		respondError(w, http.StatusUnauthorized, "Seller identity required")
		return
	}

	snapshot, err := a.ledger.Snapshot(r.Context(), sid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (a *app) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := store.CreateUser(r.Context(), a.db, req.Email, req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (a *app) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := store.GetUser(r.Context(), a.db, id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (a *app) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	result, err := store.ListUsers(r.Context(), a.db, page, pageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *app) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SellerID    int64  `json:"seller_id"`
		SKU         string `json:"sku"`
		Title       string `json:"title"`
		Description string `json:"description"`
		ImageRef    string `json:"image_ref"`
		Price       string `json:"price"`
		Stock       int    `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	product, err := store.CreateProduct(r.Context(), a.db, store.CreateProductRequest{
		SellerID:    req.SellerID,
		SKU:         req.SKU,
		Title:       req.Title,
		Description: req.Description,
		ImageRef:    req.ImageRef,
		Price:       price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (a *app) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := store.GetProduct(r.Context(), a.db, id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (a *app) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	result, err := store.ListProducts(r.Context(), a.db, page, pageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// respondCartError keeps "cart backend down" distinguishable from every
// other failure: the UI must never render it as an empty cart.
func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrBackendUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

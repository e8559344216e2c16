package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	appservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
)

var errMalformedBody = errors.New("malformed request body")

type Handler struct {
	checkout appservice.CheckoutService
	orders   service.OrderService
	bills    service.BillService
	catalog  service.CatalogService
	logger   log.FieldLogger
}

func NewHandler(
	checkout appservice.CheckoutService,
	orders service.OrderService,
	bills service.BillService,
	catalog service.CatalogService,
	logger log.FieldLogger,
) *Handler {
	return &Handler{checkout: checkout, orders: orders, bills: bills, catalog: catalog, logger: logger}
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor model.Actor)

func (h *Handler) authenticated(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r, actor)
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	var body placeOrderRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	req := appservice.PlaceOrderRequest{
		Total:       body.Total,
		Address:     body.Address,
		PaymentInfo: body.PaymentInfo,
	}
	for _, item := range body.Items {
		id, err := uuid.Parse(strings.TrimSpace(item.Product))
		if err != nil {
			h.writeError(w, r, model.ErrInvalidCartItem)
			return
		}
		var variant model.Variant
		if item.ProductType != "" {
			if variant, err = model.ParseVariant(item.ProductType); err != nil {
				h.writeError(w, r, err)
				return
			}
		}
		req.Items = append(req.Items, appservice.CartLine{ItemID: id, Quantity: item.Quantity, Variant: variant})
	}

	order, err := h.checkout.PlaceOrder(r.Context(), req, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Order placed successfully", Data: toOrderResponse(order)})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	orders, err := h.orders.ListOrders(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := make([]orderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toOrderResponse(order)})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.CancelOrder(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Order cancelled successfully", Data: toOrderResponse(order)})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body updateOrderStatusRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.UpdateOrderStatus(r.Context(), id, model.OrderStatus(body.Status), body.DeliveryDate, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Order status updated", Data: toOrderResponse(order)})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id, actor); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Order deleted successfully"})
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	h.writeBills(w, r, actor)
}

// myBills lists the caller's own bills even for admins.
func (h *Handler) myBills(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	actor.Role = model.RoleUser
	h.writeBills(w, r, actor)
}

func (h *Handler) writeBills(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	bills, err := h.bills.ListBills(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := make([]billResponse, 0, len(bills))
	for i := range bills {
		data = append(data, toBillResponse(&bills[i]))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bill, err := h.bills.GetBill(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toBillResponse(bill)})
}

func (h *Handler) getBillByOrder(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bill, err := h.bills.GetBillByOrder(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toBillResponse(bill)})
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	if !actor.IsAdmin() {
		h.writeError(w, r, model.ErrAdminRequired)
		return
	}
	var body createBillRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	orderID, err := uuid.Parse(strings.TrimSpace(body.OrderID))
	if err != nil {
		h.writeError(w, r, errMalformedBody)
		return
	}
	bill, err := h.checkout.CreateBillForOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Bill created successfully", Data: toBillResponse(bill)})
}

func (h *Handler) updateBillStatus(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body updateBillStatusRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	bill, err := h.bills.UpdateBillStatus(r.Context(), id, model.BillStatus(body.Status), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Bill status updated", Data: toBillResponse(bill)})
}

func (h *Handler) adjustBill(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body adjustBillRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	bill, err := h.bills.AdjustBillCharges(r.Context(), id, body.Tax, body.ShippingCost, body.Discount, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Bill updated", Data: toBillResponse(bill)})
}

func (h *Handler) addCatalogItem(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	if !actor.IsAdmin() {
		h.writeError(w, r, model.ErrAdminRequired)
		return
	}
	variant, err := model.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body addItemRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.catalog.AddItem(r.Context(), variant, body.Name, body.Price, body.Stock)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: toCatalogItemResponse(item)})
}

func (h *Handler) getCatalogItem(w http.ResponseWriter, r *http.Request) {
	variant, id, err := catalogPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.catalog.GetItem(r.Context(), variant, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toCatalogItemResponse(item)})
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	variant, id, err := catalogPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body addReviewRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	user := actor.Name
	if user == "" {
		user = actor.ID.String()
	}
	if _, err := h.catalog.AddReview(r.Context(), variant, id, user, body.Rating, body.Comment); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.catalog.GetItem(r.Context(), variant, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Review added", Data: toCatalogItemResponse(item)})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	variant, id, err := catalogPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body adjustStockRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	stock, err := h.catalog.AdjustStock(r.Context(), variant, id, body.Delta, body.Note, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]int{"stock": stock}})
}

func (h *Handler) inventoryLog(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	variant, id, err := catalogPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.catalog.InventoryLog(r.Context(), variant, id, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := make([]inventoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, toInventoryEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithFields(log.Fields{
			"method": r.Method,
			"url":    r.URL.String(),
		}).WithError(err).Error("request failed")
		message = "internal server error"
	}
	writeJSON(w, status, response{Success: false, Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errMalformedBody), errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, model.ErrValidation) {
			return err
		}
		return errMalformedBody
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errMalformedBody
	}
	return id, nil
}

func catalogPath(r *http.Request) (model.Variant, uuid.UUID, error) {
	variant, err := model.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		return "", uuid.Nil, err
	}
	id, err := pathID(r, "id")
	return variant, id, err
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("err", err).Error("write response")
	}
}

package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// RequestObserver records per-route request metrics.
type RequestObserver interface {
	ObserveRequest(handler string, status int, elapsed time.Duration)
}

func Router(h *Handler, observer RequestObserver, metrics http.Handler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet).Name("health")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet).Name("metrics")
	}

	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/orders", h.authenticated(h.placeOrder)).Methods(http.MethodPost).Name("place_order")
	s.HandleFunc("/orders", h.authenticated(h.listOrders)).Methods(http.MethodGet).Name("list_orders")
	s.HandleFunc("/orders/{id}", h.authenticated(h.getOrder)).Methods(http.MethodGet).Name("get_order")
	s.HandleFunc("/orders/{id}/cancel", h.authenticated(h.cancelOrder)).Methods(http.MethodPut).Name("cancel_order")
	s.HandleFunc("/orders/{id}/status", h.authenticated(h.updateOrderStatus)).Methods(http.MethodPut).Name("update_order_status")
	s.HandleFunc("/orders/{id}", h.authenticated(h.deleteOrder)).Methods(http.MethodDelete).Name("delete_order")

	s.HandleFunc("/bills", h.authenticated(h.listBills)).Methods(http.MethodGet).Name("list_bills")
	s.HandleFunc("/bills", h.authenticated(h.createBill)).Methods(http.MethodPost).Name("create_bill")
	s.HandleFunc("/bills/my-bills", h.authenticated(h.myBills)).Methods(http.MethodGet).Name("my_bills")
	s.HandleFunc("/bills/order/{orderId}", h.authenticated(h.getBillByOrder)).Methods(http.MethodGet).Name("get_bill_by_order")
	s.HandleFunc("/bills/{id}", h.authenticated(h.getBill)).Methods(http.MethodGet).Name("get_bill")
	s.HandleFunc("/bills/{id}/status", h.authenticated(h.updateBillStatus)).Methods(http.MethodPatch).Name("update_bill_status")
	s.HandleFunc("/bills/{id}", h.authenticated(h.adjustBill)).Methods(http.MethodPut).Name("adjust_bill")

	s.HandleFunc("/catalog/{variant}", h.authenticated(h.addCatalogItem)).Methods(http.MethodPost).Name("add_catalog_item")
	s.HandleFunc("/catalog/{variant}/{id}", h.getCatalogItem).Methods(http.MethodGet).Name("get_catalog_item")
	s.HandleFunc("/catalog/{variant}/{id}/reviews", h.authenticated(h.addReview)).Methods(http.MethodPost).Name("add_review")
	s.HandleFunc("/catalog/{variant}/{id}/stock", h.authenticated(h.adjustStock)).Methods(http.MethodPost).Name("adjust_stock")
	s.HandleFunc("/catalog/{variant}/{id}/inventory", h.authenticated(h.inventoryLog)).Methods(http.MethodGet).Name("inventory_log")

	if observer != nil {
		r.Use(metricsMiddleware(observer))
	}
	return logMiddleware(r)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(observer RequestObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := "unknown"
			if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
				name = route.GetName()
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			observer.ObserveRequest(name, rec.status, time.Since(start))
		})
	}
}

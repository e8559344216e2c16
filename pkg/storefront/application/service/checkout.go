package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	domainservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
)

type Consistency string

const (
	// ConsistencyTransaction runs stock decrements and the order insert in
	// one storage transaction.
	ConsistencyTransaction Consistency = "transaction"
	// ConsistencyCompensation applies decrements one by one and restocks the
	// applied ones when a later step fails.
	ConsistencyCompensation Consistency = "compensation"
)

func ParseConsistency(s string) (Consistency, error) {
	switch c := Consistency(s); c {
	case ConsistencyTransaction, ConsistencyCompensation:
		return c, nil
	}
	return "", errors.Errorf("unknown checkout consistency %q", s)
}

type Config struct {
	Consistency    Consistency
	VerifyTotal    bool
	TotalTolerance model.Money
	Bill           domainservice.BillOptions
}

type CartLine struct {
	ItemID   uuid.UUID
	Quantity int
	// Variant is the optional productType hint.
	Variant model.Variant
}

type PlaceOrderRequest struct {
	Items       []CartLine
	Total       model.Money
	Address     string
	PaymentInfo json.RawMessage
}

type BillRecovery struct {
	OrderID uuid.UUID
	Bill    *model.Bill
	Err     error
}

type CheckoutService interface {
	// PlaceOrder reserves stock, records the order and bills it. A billing
	// failure is reported through logs, metrics and events but never fails
	// the call once the order is stored.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest, actor model.Actor) (*model.Order, error)

	CreateBillForOrder(ctx context.Context, orderID uuid.UUID) (*model.Bill, error)
	CreateMissingBills(ctx context.Context) ([]BillRecovery, error)
}

func NewCheckoutService(
	catalog domainservice.CatalogService,
	orders domainservice.OrderService,
	bills domainservice.BillService,
	tx model.Transactor,
	dispatcher domainservice.EventDispatcher,
	observer CheckoutObserver,
	logger logrus.FieldLogger,
	cfg Config,
) CheckoutService {
	if observer == nil {
		observer = NopObserver{}
	}
	if cfg.Consistency == "" {
		cfg.Consistency = ConsistencyTransaction
	}
	return &checkoutService{
		catalog:    catalog,
		orders:     orders,
		bills:      bills,
		tx:         tx,
		dispatcher: dispatcher,
		observer:   observer,
		logger:     logger,
		cfg:        cfg,
	}
}

type checkoutService struct {
	catalog    domainservice.CatalogService
	orders     domainservice.OrderService
	bills      domainservice.BillService
	tx         model.Transactor
	dispatcher domainservice.EventDispatcher
	observer   CheckoutObserver
	logger     logrus.FieldLogger
	cfg        Config
}

func (s *checkoutService) PlaceOrder(ctx context.Context, req PlaceOrderRequest, actor model.Actor) (*model.Order, error) {
	start := time.Now()
	order, err := s.placeOrder(ctx, req, actor)
	s.observer.ObserveCheckout(checkoutOutcome(err), time.Since(start))
	return order, err
}

func (s *checkoutService) placeOrder(ctx context.Context, req PlaceOrderRequest, actor model.Actor) (*model.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	items, err := s.resolveLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if s.cfg.VerifyTotal {
		if err := s.verifyTotal(items, req.Total); err != nil {
			return nil, err
		}
	}

	orderID, err := s.orders.NextID()
	if err != nil {
		return nil, err
	}
	order := &model.Order{
		ID:          orderID,
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		Items:       items,
		Total:       req.Total,
		Address:     req.Address,
		PaymentInfo: req.PaymentInfo,
	}
	log := s.logger.WithFields(logrus.Fields{"order_id": orderID, "user_id": actor.ID})

	if err := s.reserveAndRecord(ctx, order, log); err != nil {
		return nil, err
	}
	log.WithField("step", "order").Info("order placed")

	s.dispatchEvents(log, model.OrderPlaced{
		OrderID:   order.ID,
		UserID:    order.UserID,
		UserEmail: order.UserEmail,
		Total:     order.Total,
		ItemCount: len(order.Items),
	})

	opts := s.cfg.Bill
	opts.UserName = actor.Name
	bill, err := s.billOrder(ctx, order, opts)
	if err != nil {
		log.WithField("step", "bill").WithError(err).Error("bill generation failed, order kept")
		s.observer.BillGenerationFailed()
		s.dispatchEvents(log, model.BillGenerationFailed{OrderID: order.ID, Reason: err.Error()})
		return order, nil
	}

	attached, err := s.orders.AttachBill(ctx, order.ID, bill.ID)
	if err != nil {
		log.WithField("bill_id", bill.ID).WithError(err).Warn("bill created but not linked to order")
		order.BillID = &bill.ID
		return order, nil
	}
	return attached, nil
}

// reserveAndRecord decrements stock for every line and inserts the order.
// Events raised on the way are published only after it succeeds.
func (s *checkoutService) reserveAndRecord(ctx context.Context, order *model.Order, log logrus.FieldLogger) error {
	ctx, events := domainservice.WithEventBuffer(ctx)

	// applied holds the units each decrement actually took.
	var applied []model.OrderItem
	mutate := func(ctx context.Context) error {
		// The transactor may retry the callback.
		applied = applied[:0]
		events.Reset()
		for _, item := range order.Items {
			change, err := s.catalog.DecrementStock(ctx, item.Variant, item.CatalogItemID, item.Quantity, order.ID.String())
			if err != nil {
				return err
			}
			if removed := change.Removed(); removed > 0 {
				item.Quantity = removed
				applied = append(applied, item)
			}
		}
		return s.orders.CreateOrder(ctx, order)
	}

	var err error
	if s.cfg.Consistency == ConsistencyTransaction {
		err = s.tx.WithinTransaction(ctx, mutate)
	} else {
		err = mutate(ctx)
		if err != nil && len(applied) > 0 {
			s.compensate(ctx, order.ID, applied, log)
		}
	}
	if err != nil {
		events.Reset()
		return err
	}
	s.dispatchEvents(log, events.Drain()...)
	return nil
}

func (s *checkoutService) compensate(ctx context.Context, orderID uuid.UUID, applied []model.OrderItem, log logrus.FieldLogger) {
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		item := applied[i]
		if _, err := s.catalog.RestoreStock(ctx, item.Variant, item.CatalogItemID, item.Quantity, orderID.String()); err != nil {
			log.WithFields(logrus.Fields{
				"step":    "compensation",
				"item_id": item.CatalogItemID,
				"variant": item.Variant,
			}).WithError(err).Error("failed to restore stock")
		}
	}
	s.observer.CompensationApplied(len(applied))
	log.WithField("step", "compensation").Warnf("restored stock for %d line(s)", len(applied))
}

func (s *checkoutService) dispatchEvents(log logrus.FieldLogger, events ...domainservice.Event) {
	for _, e := range events {
		if err := s.dispatcher.Dispatch(e); err != nil {
			log.WithField("event", e.Type()).WithError(err).Warn("failed to dispatch event")
		}
	}
}

func (s *checkoutService) resolveLines(ctx context.Context, lines []CartLine) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, err := s.catalog.ResolveVariant(ctx, line.ItemID, line.Variant)
		if err != nil {
			return nil, err
		}
		items = append(items, model.OrderItem{
			CatalogItemID: item.ID,
			Variant:       item.Variant,
			Name:          item.Name,
			Quantity:      line.Quantity,
			UnitPrice:     item.Price,
		})
	}
	return items, nil
}

func (s *checkoutService) verifyTotal(items []model.OrderItem, claimed model.Money) error {
	var computed model.Money
	for _, item := range items {
		computed += item.LineTotal()
	}
	diff := computed - claimed
	if diff < 0 {
		diff = -diff
	}
	if diff > s.cfg.TotalTolerance {
		return model.ErrTotalMismatch
	}
	return nil
}

func (s *checkoutService) billOrder(ctx context.Context, order *model.Order, opts domainservice.BillOptions) (bill *model.Bill, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("bill generation panicked: %v", r)
		}
	}()
	return s.bills.CreateBillForOrder(ctx, order.ID, order.UserID, order, opts)
}

func (s *checkoutService) CreateBillForOrder(ctx context.Context, orderID uuid.UUID) (*model.Bill, error) {
	bill, err := s.bills.CreateBillForOrder(ctx, orderID, uuid.Nil, nil, s.cfg.Bill)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.AttachBill(ctx, orderID, bill.ID); err != nil {
		return bill, errors.Wrapf(err, "link bill %s to order %s", bill.ID, orderID)
	}
	return bill, nil
}

func (s *checkoutService) CreateMissingBills(ctx context.Context) ([]BillRecovery, error) {
	orders, err := s.orders.ListUnbilledOrders(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]BillRecovery, 0, len(orders))
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		bill, err := s.CreateBillForOrder(ctx, order.ID)
		if err != nil {
			s.logger.WithField("order_id", order.ID).WithError(err).Error("bill recovery failed")
		}
		results = append(results, BillRecovery{OrderID: order.ID, Bill: bill, Err: err})
	}
	return results, nil
}

func validateRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return model.ErrEmptyCart
	}
	for _, line := range req.Items {
		if line.ItemID == uuid.Nil {
			return model.ErrInvalidCartItem
		}
		if line.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
		if line.Variant != "" {
			if _, err := model.ParseVariant(string(line.Variant)); err != nil {
				return err
			}
		}
	}
	if req.Total < 0 {
		return model.ErrNegativeAmount
	}
	return nil
}

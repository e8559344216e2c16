package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

type CatalogService interface {
	AddItem(ctx context.Context, variant model.Variant, name string, price model.Money, initialStock int) (*model.CatalogItem, error)
	GetItem(ctx context.Context, variant model.Variant, id uuid.UUID) (*model.CatalogItem, error)

	// ResolveVariant finds the catalog an item belongs to. An explicit hint is
	// trusted; an empty hint probes every catalog in model.Variants order.
	ResolveVariant(ctx context.Context, id uuid.UUID, hint model.Variant) (*model.CatalogItem, error)

	// DecrementStock takes up to quantity units under the configured policy and
	// reports how many were actually taken.
	DecrementStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int, reference string) (model.StockChange, error)
	RestoreStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int, reference string) (int, error)
	AdjustStock(ctx context.Context, variant model.Variant, id uuid.UUID, delta int, note string, actor model.Actor) (int, error)
	InventoryLog(ctx context.Context, variant model.Variant, id uuid.UUID, actor model.Actor) ([]model.InventoryLogEntry, error)

	AddReview(ctx context.Context, variant model.Variant, id uuid.UUID, user string, value int, text string) (*model.Review, error)
}

func NewCatalogService(repo model.CatalogRepository, dispatcher EventDispatcher, policy model.StockPolicy) CatalogService {
	s := &catalogService{repo: repo, dispatcher: dispatcher, policy: policy}
	for _, v := range model.Variants {
		s.resolvers = append(s.resolvers, s.lookupIn(v))
	}
	return s
}

type resolver func(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error)

type catalogService struct {
	repo       model.CatalogRepository
	dispatcher EventDispatcher
	policy     model.StockPolicy
	resolvers  []resolver
}

func (s *catalogService) AddItem(ctx context.Context, variant model.Variant, name string, price model.Money, initialStock int) (*model.CatalogItem, error) {
	if _, err := model.ParseVariant(string(variant)); err != nil {
		return nil, err
	}
	if price < 0 || initialStock < 0 {
		return nil, model.ErrNegativeAmount
	}
	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	item := &model.CatalogItem{
		ID:        id,
		Variant:   variant,
		Name:      strings.TrimSpace(name),
		Price:     price,
		Stock:     initialStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *catalogService) GetItem(ctx context.Context, variant model.Variant, id uuid.UUID) (*model.CatalogItem, error) {
	return s.repo.Find(ctx, variant, id)
}

func (s *catalogService) ResolveVariant(ctx context.Context, id uuid.UUID, hint model.Variant) (*model.CatalogItem, error) {
	if hint != "" {
		return s.lookupIn(hint)(ctx, id)
	}
	for _, resolve := range s.resolvers {
		item, err := resolve(ctx, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, model.ErrCatalogItemNotFound) {
			return nil, err
		}
	}
	return nil, model.ErrCatalogItemNotFound
}

func (s *catalogService) lookupIn(variant model.Variant) resolver {
	return func(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error) {
		return s.repo.Find(ctx, variant, id)
	}
}

func (s *catalogService) DecrementStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int, reference string) (model.StockChange, error) {
	if quantity <= 0 {
		return model.StockChange{}, model.ErrInvalidQuantity
	}
	change, err := s.repo.DecrementStock(ctx, variant, id, quantity, s.policy)
	if err != nil {
		return model.StockChange{}, err
	}
	return change, s.recordChange(ctx, variant, id, model.InventorySold, -change.Removed(), change.After, reference, "", "")
}

func (s *catalogService) RestoreStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int, reference string) (int, error) {
	if quantity <= 0 {
		return 0, model.ErrInvalidQuantity
	}
	stock, err := s.repo.IncrementStock(ctx, variant, id, quantity)
	if err != nil {
		return 0, err
	}
	return stock, s.recordChange(ctx, variant, id, model.InventoryReturn, quantity, stock, reference, "", "")
}

// AdjustStock is the admin inventory path. It goes through the same atomic
// primitives as checkout; a reduction never drives stock below zero.
func (s *catalogService) AdjustStock(ctx context.Context, variant model.Variant, id uuid.UUID, delta int, note string, actor model.Actor) (int, error) {
	if !actor.IsAdmin() {
		return 0, model.ErrAdminRequired
	}
	if delta == 0 {
		return 0, model.ErrInvalidQuantity
	}
	var (
		stock  int
		err    error
		action = model.InventoryRestock
	)
	if delta > 0 {
		stock, err = s.repo.IncrementStock(ctx, variant, id, delta)
	} else {
		action = model.InventoryAdjustment
		var change model.StockChange
		change, err = s.repo.DecrementStock(ctx, variant, id, -delta, model.StrictStock)
		stock = change.After
	}
	if err != nil {
		return 0, err
	}
	return stock, s.recordChange(ctx, variant, id, action, delta, stock, "", actor.ID.String(), note)
}

func (s *catalogService) InventoryLog(ctx context.Context, variant model.Variant, id uuid.UUID, actor model.Actor) ([]model.InventoryLogEntry, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	if _, err := s.repo.Find(ctx, variant, id); err != nil {
		return nil, err
	}
	return s.repo.ListInventoryLog(ctx, variant, id)
}

func (s *catalogService) recordChange(ctx context.Context, variant model.Variant, id uuid.UUID, action model.InventoryAction, delta, stock int, reference, performedBy, note string) error {
	logID, err := s.repo.NextID()
	if err != nil {
		return err
	}
	quantity := delta
	if quantity < 0 {
		quantity = -quantity
	}
	err = s.repo.AppendInventoryLog(ctx, model.InventoryLogEntry{
		ID:          logID,
		ItemID:      id,
		Variant:     variant,
		Action:      action,
		Quantity:    quantity,
		NewStock:    stock,
		Reference:   reference,
		PerformedBy: performedBy,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	dispatch(ctx, s.dispatcher, model.StockChanged{
		ItemID:       id,
		Variant:      variant,
		Action:       action,
		ChangeAmount: delta,
		NewQuantity:  stock,
		Reference:    reference,
	})
	return nil
}

func (s *catalogService) AddReview(ctx context.Context, variant model.Variant, id uuid.UUID, user string, value int, text string) (*model.Review, error) {
	if value < 1 || value > 5 {
		return nil, model.ErrInvalidRating
	}
	user = strings.TrimSpace(user)
	if user == "" {
		user = "Anonymous"
	}
	review := model.Review{
		User:      user,
		Value:     value,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendReview(ctx, variant, id, review); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ReviewAdded{ItemID: id, Variant: variant, User: user, Value: value})
	return &review, nil
}

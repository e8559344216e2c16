package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type placeOrderRequest struct {
	Items []struct {
		Product     string `json:"product"`
		Quantity    int    `json:"quantity"`
		ProductType string `json:"productType"`
	} `json:"items"`
	Total       model.Money     `json:"total"`
	Address     string          `json:"address"`
	PaymentInfo json.RawMessage `json:"paymentInfo"`
}

type updateOrderStatusRequest struct {
	Status       string     `json:"status"`
	DeliveryDate *time.Time `json:"deliveryDate"`
}

type createBillRequest struct {
	OrderID string `json:"orderId"`
}

type updateBillStatusRequest struct {
	Status string `json:"status"`
}

type adjustBillRequest struct {
	Tax          *model.Money `json:"tax"`
	ShippingCost *model.Money `json:"shippingCost"`
	Discount     *model.Money `json:"discount"`
}

type addItemRequest struct {
	Name  string      `json:"name"`
	Price model.Money `json:"price"`
	Stock int         `json:"stock"`
}

type addReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type adjustStockRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

type orderItemResponse struct {
	Product     uuid.UUID   `json:"product"`
	ProductType string      `json:"productType"`
	Name        string      `json:"name"`
	Quantity    int         `json:"quantity"`
	Price       model.Money `json:"price"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	User         uuid.UUID           `json:"user"`
	UserEmail    string              `json:"userEmail"`
	Items        []orderItemResponse `json:"items"`
	Total        model.Money         `json:"total"`
	Address      string              `json:"address"`
	PaymentInfo  json.RawMessage     `json:"paymentInfo,omitempty"`
	Status       string              `json:"status"`
	DeliveryDate *time.Time          `json:"deliveryDate,omitempty"`
	Bill         *uuid.UUID          `json:"bill,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		User:         o.UserID,
		UserEmail:    o.UserEmail,
		Items:        make([]orderItemResponse, 0, len(o.Items)),
		Total:        o.Total,
		Address:      o.Address,
		PaymentInfo:  o.PaymentInfo,
		Status:       string(o.Status),
		DeliveryDate: o.DeliveryDate,
		Bill:         o.BillID,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			Product:     item.CatalogItemID,
			ProductType: string(item.Variant),
			Name:        item.Name,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice,
		})
	}
	return resp
}

type billItemResponse struct {
	ProductName string      `json:"productName"`
	Quantity    int         `json:"quantity"`
	UnitPrice   model.Money `json:"unitPrice"`
	TotalPrice  model.Money `json:"totalPrice"`
}

type billResponse struct {
	ID            uuid.UUID          `json:"id"`
	BillNumber    string             `json:"billNumber"`
	OrderID       uuid.UUID          `json:"orderId"`
	UserID        uuid.UUID          `json:"userId"`
	UserName      string             `json:"userName"`
	UserEmail     string             `json:"userEmail"`
	UserAddress   string             `json:"userAddress"`
	Items         []billItemResponse `json:"items"`
	Subtotal      model.Money        `json:"subtotal"`
	TaxPercentage string             `json:"taxPercentage"` // percent, from basis points
	Tax           model.Money        `json:"tax"`
	ShippingCost  model.Money        `json:"shippingCost"`
	Discount      model.Money        `json:"discount"`
	Total         model.Money        `json:"total"`
	Status        string             `json:"status"`
	PaymentMethod string             `json:"paymentMethod"`
	Notes         string             `json:"notes,omitempty"`
	BillDate      time.Time          `json:"billDate"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func toBillResponse(b *model.Bill) billResponse {
	resp := billResponse{
		ID:            b.ID,
		BillNumber:    b.BillNumber,
		OrderID:       b.OrderID,
		UserID:        b.UserID,
		UserName:      b.UserName,
		UserEmail:     b.UserEmail,
		UserAddress:   b.UserAddress,
		Items:         make([]billItemResponse, 0, len(b.Items)),
		Subtotal:      b.Subtotal,
		TaxPercentage: decimal.New(b.TaxPercentage, -2).StringFixed(2),
		Tax:           b.Tax,
		ShippingCost:  b.ShippingCost,
		Discount:      b.Discount,
		Total:         b.Total,
		Status:        string(b.Status),
		PaymentMethod: b.PaymentMethod,
		Notes:         b.Notes,
		BillDate:      b.BillDate,
		UpdatedAt:     b.UpdatedAt,
	}
	for _, item := range b.Items {
		resp.Items = append(resp.Items, billItemResponse{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return resp
}

type reviewResponse struct {
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type catalogItemResponse struct {
	ID          uuid.UUID        `json:"id"`
	ProductType string           `json:"productType"`
	Name        string           `json:"name"`
	Price       model.Money      `json:"price"`
	Stock       int              `json:"stock"`
	InStock     bool             `json:"inStock"`
	AvgRating   float64          `json:"avgRating"`
	ReviewCount int              `json:"reviewCount"`
	Reviews     []reviewResponse `json:"reviews"`
}

func toCatalogItemResponse(item *model.CatalogItem) catalogItemResponse {
	rating := item.Rating()
	resp := catalogItemResponse{
		ID:          item.ID,
		ProductType: string(item.Variant),
		Name:        item.Name,
		Price:       item.Price,
		Stock:       item.Stock,
		InStock:     item.InStock(),
		AvgRating:   rating.Average,
		ReviewCount: rating.Count,
		Reviews:     make([]reviewResponse, 0, len(item.Reviews)),
	}
	for _, r := range item.Reviews {
		resp.Reviews = append(resp.Reviews, reviewResponse{User: r.User, Rating: r.Value, Comment: r.Text, CreatedAt: r.CreatedAt})
	}
	return resp
}

type inventoryEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	Quantity    int       `json:"quantity"`
	NewStock    int       `json:"newStock"`
	Reference   string    `json:"reference,omitempty"`
	PerformedBy string    `json:"performedBy,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toInventoryEntryResponse(e model.InventoryLogEntry) inventoryEntryResponse {
	return inventoryEntryResponse{
		ID:          e.ID,
		Action:      string(e.Action),
		Quantity:    e.Quantity,
		NewStock:    e.NewStock,
		Reference:   e.Reference,
		PerformedBy: e.PerformedBy,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

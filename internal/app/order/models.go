package order

import "github.com/francescomedina/web-app-2-sub000/internal/domain"

type LineItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CreateOrderRequest struct {
	Buyer string            `json:"buyer"`
	Items []LineItemRequest `json:"items"`
}

type LineItemResponse struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderResponse struct {
	ID       string             `json:"id"`
	Buyer    string             `json:"buyer"`
	Status   string             `json:"status"`
	Items    []LineItemResponse `json:"items"`
	Delivery string             `json:"delivery,omitempty"`
	Total    float64            `json:"total"`
}

func mapOrderToResponse(o *domain.Order) *OrderResponse {
	items := make([]LineItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return &OrderResponse{
		ID:       o.ID,
		Buyer:    o.Buyer,
		Status:   string(o.Status),
		Items:    items,
		Delivery: o.Delivery,
		Total:    o.Total(),
	}
}

func mapOrdersToResponse(orders []*domain.Order) []*OrderResponse {
	responses := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		responses[i] = mapOrderToResponse(o)
	}
	return responses
}

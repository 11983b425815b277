package adapters

import (
	"context"

	fulfillsvc "pawtrait_backend/internal/fulfillment/service"
	"pawtrait_backend/internal/order/repository"
	ordersvc "pawtrait_backend/internal/order/service"

	"github.com/google/uuid"
)

// FulfillmentOrderSync lets the fulfillment service look up and report back
// into the order module.
type FulfillmentOrderSync struct {
	svc *ordersvc.Service
}

func NewFulfillmentOrderSync(svc *ordersvc.Service) *FulfillmentOrderSync {
	return &FulfillmentOrderSync{svc: svc}
}

func (a *FulfillmentOrderSync) LatestForArtwork(ctx context.Context, artworkID uuid.UUID) (*fulfillsvc.OrderInfo, error) {
	order, err := a.svc.LatestForArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	return orderInfo(order), nil
}

func (a *FulfillmentOrderSync) RecordAccepted(ctx context.Context, orderID uuid.UUID, providerOrderID, providerStatus string) error {
	return a.svc.ApplyFulfillmentAccepted(ctx, orderID, providerOrderID, providerStatus)
}

func (a *FulfillmentOrderSync) RecordFailure(ctx context.Context, orderID uuid.UUID, reason string) {
	a.svc.RecordFulfillmentFailure(ctx, orderID, reason)
}

func (a *FulfillmentOrderSync) ApplyStatus(ctx context.Context, providerOrderID, providerStatus string) error {
	return a.svc.ApplyFulfillmentStatus(ctx, providerOrderID, providerStatus)
}

func orderInfo(order *repository.Order) *fulfillsvc.OrderInfo {
	info := &fulfillsvc.OrderInfo{
		ID:            order.ID,
		SessionID:     order.SessionID,
		ProductType:   order.ProductType,
		ProductSize:   order.ProductSize,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
	}
	if order.ShippingAddress != nil {
		info.Shipping = &fulfillsvc.ShippingInfo{
			Name:       order.ShippingAddress.Name,
			Phone:      order.ShippingAddress.Phone,
			Line1:      order.ShippingAddress.Line1,
			Line2:      order.ShippingAddress.Line2,
			City:       order.ShippingAddress.City,
			State:      order.ShippingAddress.State,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		}
	}
	return info
}

var _ fulfillsvc.OrderSync = (*FulfillmentOrderSync)(nil)

package adapters

import (
	"context"

	artworksvc "pawtrait_backend/internal/artwork/service"
	fulfillsvc "pawtrait_backend/internal/fulfillment/service"
	"pawtrait_backend/internal/order/repository"
	ordersvc "pawtrait_backend/internal/order/service"

	"pawtrait_backend/platform/apperr"
)

// OrderFulfillmentSubmitter hands a paid physical order to the print
// provider, resolving the print file from the linked artwork.
type OrderFulfillmentSubmitter struct {
	fulfillment *fulfillsvc.Service
	artworks    *artworksvc.Service
}

func NewOrderFulfillmentSubmitter(fulfillment *fulfillsvc.Service, artworks *artworksvc.Service) *OrderFulfillmentSubmitter {
	return &OrderFulfillmentSubmitter{fulfillment: fulfillment, artworks: artworks}
}

func (a *OrderFulfillmentSubmitter) SubmitOrder(ctx context.Context, order *repository.Order) error {
	artwork, err := a.artworks.GetArtwork(ctx, order.ArtworkID)
	if err != nil {
		return err
	}

	imageURL := artwork.GeneratedImages.ArtworkFullRes
	if imageURL == "" {
		imageURL = artwork.GeneratedImages.ArtworkPreview
	}
	if imageURL == "" {
		return apperr.Validation("artwork has no print file yet")
	}

	var shipping *fulfillsvc.ShippingInfo
	if order.ShippingAddress != nil {
		shipping = &fulfillsvc.ShippingInfo{
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

	return a.fulfillment.Submit(ctx, fulfillsvc.SubmitParams{
		OrderID:       order.ID,
		SessionID:     order.SessionID,
		ProductType:   order.ProductType,
		ProductSize:   order.ProductSize,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		ImageURL:      imageURL,
		Shipping:      shipping,
	})
}

var _ ordersvc.FulfillmentSubmitter = (*OrderFulfillmentSubmitter)(nil)

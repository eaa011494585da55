package carrier

import (
	"context"
	"net/url"
	"strconv"
)

// CreateShipment books an ad-hoc order with the carrier.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) Result[ShipmentCreated] {
	return call[ShipmentCreated](ctx, c, VerbPost, "orders/create/adhoc", nil, req)
}

// GenerateAWB assigns an air waybill to a booked shipment. A zero courierID lets the
// carrier pick its recommended courier.
func (c *Client) GenerateAWB(ctx context.Context, shipmentID int64, courierID int) Result[AWBAssignment] {
	return call[AWBAssignment](ctx, c, VerbPost, "courier/assign/awb", nil, awbRequest{ShipmentID: shipmentID, CourierID: courierID})
}

// Track returns tracking data for an AWB.
func (c *Client) Track(ctx context.Context, awb string) Result[Tracking] {
	return call[Tracking](ctx, c, VerbGet, "courier/track/awb/"+awb, nil, nil)
}

// TrackByOrder returns tracking data for every shipment of a channel order.
func (c *Client) TrackByOrder(ctx context.Context, orderID string) Result[[]Tracking] {
	return call[[]Tracking](ctx, c, VerbGet, "courier/track", url.Values{"order_id": {orderID}}, nil)
}

// CheckServiceability lists couriers that can move a parcel of weightKg between two pincodes.
func (c *Client) CheckServiceability(ctx context.Context, pickupPin, deliveryPin string, weightKg float64, cod bool) Result[Serviceability] {
	q := url.Values{
		"pickup_postcode":   {pickupPin},
		"delivery_postcode": {deliveryPin},
		"weight":            {strconv.FormatFloat(weightKg, 'f', -1, 64)},
		"cod":               {boolFlag(cod)},
	}
	return call[Serviceability](ctx, c, VerbGet, "courier/serviceability/", q, nil)
}

// ListCouriers returns the account's couriers filtered by type ("active", "inactive", "all").
func (c *Client) ListCouriers(ctx context.Context, courierType string) Result[CourierList] {
	var q url.Values
	if courierType != "" {
		q = url.Values{"type": {courierType}}
	}
	return call[CourierList](ctx, c, VerbGet, "courier/courierListWithCounts", q, nil)
}

// Cancel cancels carrier orders by id.
func (c *Client) Cancel(ctx context.Context, ids []int64) Result[CancelResult] {
	return call[CancelResult](ctx, c, VerbPost, "orders/cancel", nil, cancelRequest{IDs: ids})
}

// SchedulePickup requests a courier pickup for a shipment.
func (c *Client) SchedulePickup(ctx context.Context, shipmentID int64) Result[PickupScheduled] {
	return call[PickupScheduled](ctx, c, VerbPost, "courier/generate/pickup", nil, pickupRequest{ShipmentID: []int64{shipmentID}})
}

// ListPickupLocations returns the configured pickup addresses.
func (c *Client) ListPickupLocations(ctx context.Context) Result[PickupLocations] {
	return call[PickupLocations](ctx, c, VerbGet, "settings/company/pickup", nil, nil)
}

// CreateReturn books a reverse pickup.
func (c *Client) CreateReturn(ctx context.Context, req ReturnRequest) Result[ShipmentCreated] {
	return call[ShipmentCreated](ctx, c, VerbPost, "orders/create/return", nil, req)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

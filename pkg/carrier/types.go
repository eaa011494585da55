package carrier

// ShipmentItem is one line of a carrier order.
type ShipmentItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// ShipmentRequest is the body of an ad-hoc order creation.
type ShipmentRequest struct {
	OrderID             string         `json:"order_id"`
	OrderDate           string         `json:"order_date"`
	PickupLocation      string         `json:"pickup_location"`
	BillingCustomerName string         `json:"billing_customer_name"`
	BillingLastName     string         `json:"billing_last_name"`
	BillingAddress      string         `json:"billing_address"`
	BillingAddress2     string         `json:"billing_address_2,omitempty"`
	BillingCity         string         `json:"billing_city"`
	BillingPincode      string         `json:"billing_pincode"`
	BillingState        string         `json:"billing_state"`
	BillingCountry      string         `json:"billing_country"`
	BillingEmail        string         `json:"billing_email,omitempty"`
	BillingPhone        string         `json:"billing_phone"`
	ShippingIsBilling   bool           `json:"shipping_is_billing"`
	OrderItems          []ShipmentItem `json:"order_items"`
	PaymentMethod       string         `json:"payment_method"` // "Prepaid" or "COD"
	SubTotal            float64        `json:"sub_total"`
	Length              float64        `json:"length"`
	Breadth             float64        `json:"breadth"`
	Height              float64        `json:"height"`
	Weight              float64        `json:"weight"`
}

// ShipmentCreated is the carrier's answer to order and return creation.
type ShipmentCreated struct {
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	Status      string `json:"status"`
	StatusCode  int    `json:"status_code"`
	AWBCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
}

type awbRequest struct {
	ShipmentID int64 `json:"shipment_id"`
	CourierID  int   `json:"courier_id,omitempty"`
}

// AWBAssignment is the carrier's answer to an AWB request.
type AWBAssignment struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode          string `json:"awb_code"`
			CourierCompanyID int    `json:"courier_company_id"`
			CourierName      string `json:"courier_name"`
			ShipmentID       int64  `json:"shipment_id"`
			AssignError      string `json:"awb_assign_error"`
		} `json:"data"`
	} `json:"response"`
}

// Assigned reports whether the carrier actually issued an AWB.
func (a AWBAssignment) Assigned() bool {
	return a.AWBAssignStatus == 1 && a.Response.Data.AWBCode != ""
}

// TrackActivity is one scan event of a shipment.
type TrackActivity struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Activity string `json:"activity"`
	Location string `json:"location"`
}

// TrackEntry summarises a shipment's current state.
type TrackEntry struct {
	AWBCode       string `json:"awb_code"`
	CourierName   string `json:"courier_name"`
	CurrentStatus string `json:"current_status"`
	DeliveredDate string `json:"delivered_date"`
	EDD           string `json:"edd"`
}

// Tracking is the carrier tracking document.
type Tracking struct {
	TrackingData struct {
		TrackStatus             int             `json:"track_status"`
		ShipmentStatus          int             `json:"shipment_status"`
		ShipmentTrack           []TrackEntry    `json:"shipment_track"`
		ShipmentTrackActivities []TrackActivity `json:"shipment_track_activities"`
		TrackURL                string          `json:"track_url"`
		Error                   string          `json:"error,omitempty"`
	} `json:"tracking_data"`
}

// CurrentStatus returns the latest carrier status text, if any.
func (t Tracking) CurrentStatus() string {
	if len(t.TrackingData.ShipmentTrack) == 0 {
		return ""
	}
	return t.TrackingData.ShipmentTrack[0].CurrentStatus
}

// CourierOption is a courier able to serve a route.
type CourierOption struct {
	CourierCompanyID      int     `json:"courier_company_id"`
	CourierName           string  `json:"courier_name"`
	Rate                  float64 `json:"rate"`
	ETD                   string  `json:"etd"`
	EstimatedDeliveryDays string  `json:"estimated_delivery_days"`
	COD                   int     `json:"cod"`
}

// Serviceability lists couriers that can deliver between two pincodes.
type Serviceability struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCourierCompanies   []CourierOption `json:"available_courier_companies"`
		RecommendedCourierCompanyID int             `json:"recommended_courier_company_id"`
	} `json:"data"`
}

// Courier is an account-level courier entry.
type Courier struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status int    `json:"status"`
}

// CourierList is the account's courier roster.
type CourierList struct {
	CourierData       []Courier `json:"courier_data"`
	TotalCourierCount int       `json:"total_courier_count"`
}

type cancelRequest struct {
	IDs []int64 `json:"ids"`
}

// CancelResult is the carrier's answer to a cancellation.
type CancelResult struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

type pickupRequest struct {
	ShipmentID []int64 `json:"shipment_id"`
}

// PickupScheduled is the carrier's answer to a pickup request.
type PickupScheduled struct {
	PickupStatus int `json:"pickup_status"`
	Response     struct {
		PickupScheduledDate string `json:"pickup_scheduled_date"`
		PickupTokenNumber   string `json:"pickup_token_number"`
		Status              int    `json:"status"`
	} `json:"response"`
}

// PickupLocation is a configured warehouse address.
type PickupLocation struct {
	ID             int    `json:"id"`
	PickupLocation string `json:"pickup_location"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	PinCode        string `json:"pin_code"`
	Phone          string `json:"phone"`
}

// PickupLocations lists the account's pickup addresses.
type PickupLocations struct {
	Data struct {
		ShippingAddress []PickupLocation `json:"shipping_address"`
	} `json:"data"`
}

// ReturnRequest is the body of a return order creation.
type ReturnRequest struct {
	OrderID              string         `json:"order_id"`
	OrderDate            string         `json:"order_date"`
	PickupCustomerName   string         `json:"pickup_customer_name"`
	PickupAddress        string         `json:"pickup_address"`
	PickupCity           string         `json:"pickup_city"`
	PickupState          string         `json:"pickup_state"`
	PickupCountry        string         `json:"pickup_country"`
	PickupPincode        string         `json:"pickup_pincode"`
	PickupPhone          string         `json:"pickup_phone"`
	ShippingCustomerName string         `json:"shipping_customer_name"`
	ShippingAddress      string         `json:"shipping_address"`
	ShippingCity         string         `json:"shipping_city"`
	ShippingCountry      string         `json:"shipping_country"`
	ShippingPincode      string         `json:"shipping_pincode"`
	ShippingState        string         `json:"shipping_state"`
	ShippingPhone        string         `json:"shipping_phone"`
	OrderItems           []ShipmentItem `json:"order_items"`
	PaymentMethod        string         `json:"payment_method"`
	SubTotal             float64        `json:"sub_total"`
	Length               float64        `json:"length"`
	Breadth              float64        `json:"breadth"`
	Height               float64        `json:"height"`
	Weight               float64        `json:"weight"`
}

package ledger

import (
	"time"

	"github.com/dealerops/partstrail-backend/pkg/enums"
)

// UploadRow is the uniform record shape every feed parser produces. Feed
// specific fields are left at their zero values by the other parsers.
type UploadRow struct {
	ItemNo          string
	ItemDescription string
	CustomerNo      string
	CustomerName    string
	VIN             string
	DocumentNo      string
	OrderNo         string
	ServiceAdvisor  string
	ETA             string
	OrderedQty      int
	InTransitQty    int
	Cardown         string

	// Back Order feed only.
	NextInfo      string
	BackOrderDate string

	// Invoiced feed only.
	ShipmentRef string
}

// NotificationPayload carries enough context about one ledger mutation for
// downstream email and in-app rendering.
type NotificationPayload struct {
	Advisor      string           `json:"advisor"`
	ItemNo       string           `json:"item_no"`
	Status       enums.ItemStatus `json:"status"`
	Description  string           `json:"description"`
	DocumentNo   string           `json:"document_no"`
	CustomerName string           `json:"customer_name"`
	CustomerNo   string           `json:"customer_no"`
	OrderNo      string           `json:"order_no"`
	OrderedQty   int              `json:"ordered_qty"`
	ETA          string           `json:"eta"`
	Cardown      string           `json:"cardown,omitempty"`
	InTransitQty int              `json:"in_transit_qty,omitempty"`
	Duration     string           `json:"duration,omitempty"`
}

// BatchResult summarizes one upload batch. Row-level failures are collected
// in Err; they never abort sibling rows.
type BatchResult struct {
	Processed     int
	Created       int
	Updated       int
	Skipped       int
	Notifications []NotificationPayload
	Err           error
}

// ReceiveInput is one line of a shipment review submission.
type ReceiveInput struct {
	PartID uint `json:"part_id" validate:"required"`
	Qty    int  `json:"qty" validate:"required,min=1"`
}

// ViewScope restricts ledger reads by the caller's roles and advisor code.
type ViewScope struct {
	Roles       enums.RoleSet
	AdvisorCode string
}

// ShipmentSummary aggregates one invoiced upload batch.
type ShipmentSummary struct {
	ShipmentRef    string    `json:"shipment_ref"`
	CurrentETA     string    `json:"current_eta"`
	LastUpdate     time.Time `json:"last_update"`
	TotalItems     int       `json:"total_items"`
	InTransitCount int       `json:"in_transit_count"`
	ReceivedCount  int       `json:"received_count"`
	Status         string    `json:"status"`
}

// DashboardMetrics are the headline counts for the admin dashboard.
type DashboardMetrics struct {
	ActiveOrders  int64 `json:"active_orders"`
	CarDown       int64 `json:"car_down"`
	ReceivedCount int64 `json:"received_count"`
}

// TopPart is one row of the most-ordered-parts aggregate.
type TopPart struct {
	ItemNo          string `json:"item_no"`
	ItemDescription string `json:"item_description"`
	Frequency       int64  `json:"frequency"`
	TotalQty        int64  `json:"total_qty"`
}

package models

import (
	"time"

	"github.com/dealerops/partstrail-backend/pkg/enums"
)

// PartRecord is one tracked reservation/shipment line in the parts ledger.
//
// UpdatesLog is an append-only audit trail in the bracketed-timestamp text
// format; it is never rewritten, only appended to. When no override date is
// set it is the sole source of historical timing truth.
type PartRecord struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	ItemNo string `gorm:"column:item_no;type:text;index"`
	// ItemKey is the zero-tolerant comparison form of ItemNo, maintained on
	// every write so candidate lookups can use an index instead of scanning.
	ItemKey         string           `gorm:"column:item_key;type:text;index"`
	ItemDescription string           `gorm:"column:item_description;type:text"`
	CustomerNo      string           `gorm:"column:customer_no;type:text"`
	CustomerName    string           `gorm:"column:customer_name;type:text"`
	VIN             string           `gorm:"column:vin;type:text"`
	DocumentNo      string           `gorm:"column:document_no;type:text"`
	OrderNo         string           `gorm:"column:order_no;type:text"`
	ServiceAdvisor  string           `gorm:"column:service_advisor;type:text;index"`
	ItemStatus      enums.ItemStatus `gorm:"column:item_status;type:text;index"`
	ETA             string           `gorm:"column:eta;type:text"`
	OrderedQty      int              `gorm:"column:ordered_qty;not null;default:0"`
	InTransitQty    int              `gorm:"column:in_transit_qty;not null;default:0"`
	ReceivedQty     int              `gorm:"column:received_qty;not null;default:0"`
	Cardown         string           `gorm:"column:cardown;type:text;default:'No'"`
	UpdatesLog      string           `gorm:"column:updates_log;type:text;default:''"`
	IsArchived      bool             `gorm:"column:is_archived;not null;default:false;index"`
	SourceFileType  enums.FeedKind   `gorm:"column:source_file_type;type:text"`
	ShipmentRef     string           `gorm:"column:shipment_ref;type:text;index"`
	NextInfo        string           `gorm:"column:next_info;type:text"`

	PostedBy string     `gorm:"column:posted_by;type:text"`
	PostedAt *time.Time `gorm:"column:posted_at"`

	// Manual overrides take precedence over log-derived aging.
	CustomStockDate       *time.Time `gorm:"column:custom_stock_date"`
	BackOrderOriginalDate *time.Time `gorm:"column:back_order_original_date"`
	ReceivedDate          *time.Time `gorm:"column:received_date"`
	LastReminderSent      *time.Time `gorm:"column:last_reminder_sent"`

	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`

	Remarks []Remark `gorm:"foreignKey:PartID;constraint:OnDelete:CASCADE"`
}

// TableName keeps the legacy table name from the original ledger.
func (PartRecord) TableName() string {
	return "parts"
}

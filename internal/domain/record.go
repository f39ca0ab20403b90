package domain

// UploadRecord is the durable outcome of a successfully published design.
// JSON tags follow the on-disk ledger format.
type UploadRecord struct {
	Filename         string  `json:"filename"`
	UploadDate       string  `json:"upload_date"`
	Category         string  `json:"category"`
	Theme            string  `json:"theme"`
	BasePrice        float64 `json:"base_price"`
	RetailPrice      float64 `json:"retail_price"`
	AssetID          int64   `json:"asset_id"`
	FulfillmentID    int64   `json:"printful_product_id"`
	DesignURL        string  `json:"design_url,omitempty"`
	StorefrontID     int64   `json:"shopify_product_id,omitempty"`
	StorefrontHandle string  `json:"shopify_handle,omitempty"`
}

// FailureRecord remembers where and why a design failed so a later run can
// retry it.
type FailureRecord struct {
	Filename string `json:"filename"`
	FailDate string `json:"fail_date"`
	Category string `json:"category"`
	Theme    string `json:"theme"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// UploadedEntry pairs a fingerprint with its upload record.
type UploadedEntry struct {
	Fingerprint string
	Record      UploadRecord
}

// FailedEntry pairs a fingerprint with its failure record.
type FailedEntry struct {
	Fingerprint string
	Record      FailureRecord
}

// AssetRef identifies a file accepted by the fulfillment platform.
type AssetRef struct {
	ID  int64
	URL string
}

// StorefrontListing identifies the mirrored storefront product.
type StorefrontListing struct {
	ProductID int64
	Handle    string
}

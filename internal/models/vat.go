package models

// VATReturn is the nine-box submission body for
// POST /organisations/vat/{vrn}/returns. Boxes 1-5 are pounds and pence,
// boxes 6-9 whole pounds, per the MTD VAT API.
type VATReturn struct {
	PeriodKey                    string  `json:"periodKey" validate:"required,max=4"`
	VATDueSales                  float64 `json:"vatDueSales" validate:"gte=0"`
	VATDueAcquisitions           float64 `json:"vatDueAcquisitions" validate:"gte=0"`
	TotalVATDue                  float64 `json:"totalVatDue" validate:"gte=0"`
	VATReclaimedCurrPeriod       float64 `json:"vatReclaimedCurrPeriod" validate:"gte=0"`
	NetVATDue                    float64 `json:"netVatDue" validate:"gte=0"`
	TotalValueSalesExVAT         int64   `json:"totalValueSalesExVAT" validate:"gte=0"`
	TotalValuePurchasesExVAT     int64   `json:"totalValuePurchasesExVAT" validate:"gte=0"`
	TotalValueGoodsSuppliedExVAT int64   `json:"totalValueGoodsSuppliedExVAT" validate:"gte=0"`
	TotalAcquisitionsExVAT       int64   `json:"totalAcquisitionsExVAT" validate:"gte=0"`
	Finalised                    bool    `json:"finalised" validate:"eq=true"`
}

// ReturnReceipt is the sandbox acknowledgement for an accepted return.
type ReturnReceipt struct {
	ProcessingDate   string `json:"processingDate"`
	PaymentIndicator string `json:"paymentIndicator,omitempty"`
	FormBundleNumber string `json:"formBundleNumber,omitempty"`
	ChargeRefNumber  string `json:"chargeRefNumber,omitempty"`
}

// Obligation is a due-date record for a VAT period. Status is "O" (open)
// or "F" (fulfilled); an open obligation's PeriodKey is what a return
// submission must reference.
type Obligation struct {
	PeriodKey string `json:"periodKey"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Due       string `json:"due"`
	Status    string `json:"status"`
	Received  string `json:"received,omitempty"`
}

type ObligationsResponse struct {
	Obligations []Obligation `json:"obligations"`
}

type TaxPeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Liability struct {
	TaxPeriod         *TaxPeriod `json:"taxPeriod,omitempty"`
	Type              string     `json:"type"`
	OriginalAmount    float64    `json:"originalAmount"`
	OutstandingAmount float64    `json:"outstandingAmount,omitempty"`
	Due               string     `json:"due,omitempty"`
}

type LiabilitiesResponse struct {
	Liabilities []Liability `json:"liabilities"`
}

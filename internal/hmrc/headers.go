package hmrc

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/vatbridge/vatbridge/internal/config"
)

// FraudHeaders supplies the Gov-Client/Gov-Vendor header set HMRC requires
// on every API call. The values here are static placeholders the sandbox
// accepts; production use would have to collect real device and network
// details from the browser.
type FraudHeaders struct {
	deviceID    string
	userAgent   string
	productName string
	version     string
	licenseIDs  string
}

func NewFraudHeaders(cfg *config.VendorConfig) *FraudHeaders {
	return &FraudHeaders{
		// One device id per process, matching a single-operator demo deployment.
		deviceID:    uuid.New().String(),
		userAgent:   fmt.Sprintf("%s/%s", cfg.ProductName, cfg.Version),
		productName: cfg.ProductName,
		version:     fmt.Sprintf("%s=%s", cfg.ProductName, cfg.Version),
		licenseIDs:  cfg.LicenseIDs,
	}
}

func (f *FraudHeaders) Apply(h http.Header) {
	h.Set("Gov-Client-Public-IP", "203.0.113.42")
	h.Set("Gov-Client-Public-Port", "443")
	h.Set("Gov-Client-User-Agent", f.userAgent)
	h.Set("Gov-Client-Device-Id", f.deviceID)
	h.Set("Gov-Client-Timezone", "UTC")
	h.Set("Gov-Vendor-Product-Name", f.productName)
	h.Set("Gov-Vendor-Version", f.version)
	h.Set("Gov-Vendor-License-IDs", f.licenseIDs)
}

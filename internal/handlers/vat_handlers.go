package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/hmrc"
	"github.com/vatbridge/vatbridge/internal/middleware"
	"github.com/vatbridge/vatbridge/internal/models"
	"github.com/vatbridge/vatbridge/internal/service"
	"github.com/vatbridge/vatbridge/internal/web"
)

// Sandbox defaults matching HMRC's test organisation.
const (
	defaultVRN      = "666666666"
	defaultDateFrom = "2021-01-01"
	defaultDateTo   = "2025-12-31"
)

var vrnPattern = regexp.MustCompile(`^\d{9}$`)

type VATHandlers struct {
	client   *hmrc.Client
	tokens   *service.TokenService
	renderer *web.Renderer
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewVATHandlers(
	client *hmrc.Client,
	tokens *service.TokenService,
	renderer *web.Renderer,
	logger *logrus.Logger,
) *VATHandlers {
	validate := validator.New()
	// Report violations under the wire field names the form also uses.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &VATHandlers{
		client:   client,
		tokens:   tokens,
		renderer: renderer,
		validate: validate,
		logger:   logger,
	}
}

type listPage struct {
	Title         string
	Authenticated bool
	VRN           string
	From          string
	To            string
	FieldErrors   map[string]string
	Result        interface{}
	RawJSON       string
	Error         string
}

func newListPage(title string) listPage {
	return listPage{
		Title:         title,
		Authenticated: true,
		VRN:           defaultVRN,
		From:          defaultDateFrom,
		To:            defaultDateTo,
		FieldErrors:   map[string]string{},
	}
}

// Obligations renders the date-range form and, on POST, lists the VAT
// obligations for the VRN.
func (h *VATHandlers) Obligations(w http.ResponseWriter, r *http.Request) {
	page := newListPage("Obligations")
	if r.Method == http.MethodGet {
		h.renderer.Render(w, http.StatusOK, "obligations", page)
		return
	}

	if !h.parseListForm(r, &page) {
		h.renderer.Render(w, http.StatusBadRequest, "obligations", page)
		return
	}

	accessToken, ok := h.accessToken(r, &page.Error)
	if !ok {
		h.renderer.Render(w, http.StatusUnauthorized, "obligations", page)
		return
	}

	result, raw, err := h.client.Obligations(r.Context(), accessToken, page.VRN, page.From, page.To)
	if err != nil {
		page.Error = h.remoteErrorMessage(err)
		h.renderer.Render(w, http.StatusOK, "obligations", page)
		return
	}

	page.Result = result
	page.RawJSON = indentJSON(raw)
	h.renderer.Render(w, http.StatusOK, "obligations", page)
}

// Liabilities mirrors Obligations against the liabilities resource.
func (h *VATHandlers) Liabilities(w http.ResponseWriter, r *http.Request) {
	page := newListPage("Liabilities")
	if r.Method == http.MethodGet {
		h.renderer.Render(w, http.StatusOK, "liabilities", page)
		return
	}

	if !h.parseListForm(r, &page) {
		h.renderer.Render(w, http.StatusBadRequest, "liabilities", page)
		return
	}

	accessToken, ok := h.accessToken(r, &page.Error)
	if !ok {
		h.renderer.Render(w, http.StatusUnauthorized, "liabilities", page)
		return
	}

	result, raw, err := h.client.Liabilities(r.Context(), accessToken, page.VRN, page.From, page.To)
	if err != nil {
		page.Error = h.remoteErrorMessage(err)
		h.renderer.Render(w, http.StatusOK, "liabilities", page)
		return
	}

	page.Result = result
	page.RawJSON = indentJSON(raw)
	h.renderer.Render(w, http.StatusOK, "liabilities", page)
}

type returnsPage struct {
	Title         string
	Authenticated bool
	VRN           string
	Form          map[string]string
	FieldErrors   map[string]string
	Payload       string
	RawJSON       string
	Error         string
	Notice        string
}

var returnBoxFields = []string{
	"vatDueSales", "vatDueAcquisitions", "totalVatDue", "vatReclaimedCurrPeriod",
	"netVatDue", "totalValueSalesExVAT", "totalValuePurchasesExVAT",
	"totalValueGoodsSuppliedExVAT", "totalAcquisitionsExVAT",
}

func newReturnsPage() returnsPage {
	form := map[string]string{
		"periodKey": "",
		"finalised": "true",
	}
	for i, field := range returnBoxFields {
		if i < 5 {
			form[field] = "0.00"
		} else {
			form[field] = "0"
		}
	}

	return returnsPage{
		Title:         "Submit Return",
		Authenticated: true,
		VRN:           defaultVRN,
		Form:          form,
		FieldErrors:   map[string]string{},
	}
}

// Returns renders the nine-box form and, on POST, validates the input and
// submits the return. Nothing is sent to HMRC when validation fails.
func (h *VATHandlers) Returns(w http.ResponseWriter, r *http.Request) {
	page := newReturnsPage()
	if r.Method == http.MethodGet {
		h.renderer.Render(w, http.StatusOK, "returns", page)
		return
	}

	ret, ok := h.parseReturnForm(r, &page)
	if !ok {
		h.renderer.Render(w, http.StatusBadRequest, "returns", page)
		return
	}

	payload, err := json.MarshalIndent(ret, "", "  ")
	if err == nil {
		page.Payload = string(payload)
	}

	accessToken, ok := h.accessToken(r, &page.Error)
	if !ok {
		h.renderer.Render(w, http.StatusUnauthorized, "returns", page)
		return
	}

	receipt, raw, err := h.client.SubmitReturn(r.Context(), accessToken, page.VRN, ret)
	if err != nil {
		page.Error = h.remoteErrorMessage(err)
		h.renderer.Render(w, http.StatusOK, "returns", page)
		return
	}

	page.Notice = fmt.Sprintf("Return accepted. Processing date: %s", receipt.ProcessingDate)
	page.RawJSON = indentJSON(raw)
	h.renderer.Render(w, http.StatusOK, "returns", page)
}

func (h *VATHandlers) parseListForm(r *http.Request, page *listPage) bool {
	page.VRN = strings.TrimSpace(r.FormValue("vrn"))
	page.From = strings.TrimSpace(r.FormValue("from"))
	page.To = strings.TrimSpace(r.FormValue("to"))

	if !vrnPattern.MatchString(page.VRN) {
		page.FieldErrors["vrn"] = "must be a 9-digit number"
	}
	if !isValidDate(page.From) {
		page.FieldErrors["from"] = "must be a YYYY-MM-DD date"
	}
	if !isValidDate(page.To) {
		page.FieldErrors["to"] = "must be a YYYY-MM-DD date"
	}

	return len(page.FieldErrors) == 0
}

func (h *VATHandlers) parseReturnForm(r *http.Request, page *returnsPage) (*models.VATReturn, bool) {
	page.VRN = strings.TrimSpace(r.FormValue("vrn"))
	page.Form["periodKey"] = strings.TrimSpace(r.FormValue("periodKey"))
	for _, field := range returnBoxFields {
		page.Form[field] = strings.TrimSpace(r.FormValue(field))
	}
	if r.FormValue("finalised") == "true" {
		page.Form["finalised"] = "true"
	} else {
		page.Form["finalised"] = ""
	}

	if !vrnPattern.MatchString(page.VRN) {
		page.FieldErrors["vrn"] = "must be a 9-digit number"
	}

	ret := &models.VATReturn{
		PeriodKey: page.Form["periodKey"],
		Finalised: page.Form["finalised"] == "true",
	}

	// Boxes 1-5 take pounds and pence, boxes 6-9 whole pounds.
	ret.VATDueSales = h.parsePence(page, "vatDueSales")
	ret.VATDueAcquisitions = h.parsePence(page, "vatDueAcquisitions")
	ret.TotalVATDue = h.parsePence(page, "totalVatDue")
	ret.VATReclaimedCurrPeriod = h.parsePence(page, "vatReclaimedCurrPeriod")
	ret.NetVATDue = h.parsePence(page, "netVatDue")
	ret.TotalValueSalesExVAT = h.parsePounds(page, "totalValueSalesExVAT")
	ret.TotalValuePurchasesExVAT = h.parsePounds(page, "totalValuePurchasesExVAT")
	ret.TotalValueGoodsSuppliedExVAT = h.parsePounds(page, "totalValueGoodsSuppliedExVAT")
	ret.TotalAcquisitionsExVAT = h.parsePounds(page, "totalAcquisitionsExVAT")

	if err := h.validate.Struct(ret); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if _, seen := page.FieldErrors[fe.Field()]; !seen {
					page.FieldErrors[fe.Field()] = validationMessage(fe)
				}
			}
		} else {
			page.Error = "Invalid form input."
		}
	}

	return ret, len(page.FieldErrors) == 0 && page.Error == ""
}

func (h *VATHandlers) parsePence(page *returnsPage, field string) float64 {
	value, err := strconv.ParseFloat(page.Form[field], 64)
	if err != nil {
		page.FieldErrors[field] = "must be a number"
		return 0
	}
	return value
}

func (h *VATHandlers) parsePounds(page *returnsPage, field string) int64 {
	value, err := strconv.ParseInt(page.Form[field], 10, 64)
	if err != nil {
		page.FieldErrors[field] = "must be a whole number"
		return 0
	}
	return value
}

func (h *VATHandlers) accessToken(r *http.Request, errOut *string) (string, bool) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		*errOut = "Session expired. Sign in with HMRC again."
		return "", false
	}

	accessToken, err := h.tokens.EnsureValid(r.Context(), sess)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			*errOut = "Session expired. Sign in with HMRC again."
		} else {
			h.logger.WithError(err).Error("Failed to obtain access token")
			*errOut = fmt.Sprintf("Could not refresh the HMRC token: %v", err)
		}
		return "", false
	}

	return accessToken, true
}

func (h *VATHandlers) remoteErrorMessage(err error) string {
	if hmrc.IsUnauthorized(err) {
		return "Session expired (401 from HMRC). Sign in with HMRC again."
	}

	var apiErr *hmrc.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Error %d: %s", apiErr.StatusCode, apiErr.Body)
	}

	return err.Error()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must not be negative"
	case "max":
		return "is too long"
	case "eq":
		return "the declaration must be ticked"
	default:
		return "is invalid"
	}
}

func isValidDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func indentJSON(raw []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"afyacare_backend/internals/configs"
	helper "afyacare_backend/internals/helpers"
)

const (
	mpesaSandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionBaseURL = "https://api.safaricom.co.ke"

	// Tokens are issued for 3599s; refresh a minute early.
	tokenExpiryMargin = 60 * time.Second
)

/* =======================================
   Daraja client (OAuth + STK push/query)
========================================*/

type MpesaClient struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string

	BaseURL    string
	HTTPClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewMpesaClient() *MpesaClient {
	baseURL := mpesaSandboxBaseURL
	if configs.MpesaEnvironment == "production" {
		baseURL = mpesaProductionBaseURL
	}
	return &MpesaClient{
		ConsumerKey:    configs.MpesaConsumerKey,
		ConsumerSecret: configs.MpesaConsumerSecret,
		Shortcode:      configs.MpesaShortcode,
		Passkey:        configs.MpesaPasskey,
		CallbackURL:    configs.MpesaCallbackURL,
		BaseURL:        baseURL,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken returns a cached OAuth token, fetching a fresh one when
// the cached token is within the expiry margin.
func (m *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.tokenExpiry.Add(-tokenExpiryMargin)) {
		return m.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", helper.NewGatewayError("build token request", err)
	}
	req.SetBasicAuth(m.ConsumerKey, m.ConsumerSecret)

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", helper.NewGatewayError("fetch access token", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", helper.NewGatewayError("read token response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", helper.NewGatewayError(fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var tok tokenResponse
	if err := sonic.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", helper.NewGatewayError("decode token response", err)
	}

	ttl := 3599 * time.Second
	if secs, err := time.ParseDuration(tok.ExpiresIn + "s"); err == nil && secs > 0 {
		ttl = secs
	}

	m.token = tok.AccessToken
	m.tokenExpiry = time.Now().Add(ttl)
	return m.token, nil
}

// password returns base64(shortcode + passkey + timestamp), the Daraja
// STK credential for the given YYYYMMDDHHMMSS timestamp.
func (m *MpesaClient) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(m.Shortcode + m.Passkey + timestamp))
}

/* ===================== STK Push ===================== */

type STKPushInput struct {
	PhoneNumber      string // normalized, digits only
	Amount           decimal.Decimal
	AccountReference string // truncated to 12 chars
	Description      string // truncated to 13 chars
}

type STKPushResult struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Accepted reports whether the gateway accepted the push request.
func (r *STKPushResult) Accepted() bool { return r.ResponseCode == "0" }

// STKPush sends a CustomerPayBillOnline push prompt to the phone.
// Amounts are whole shillings on the wire.
func (m *MpesaClient) STKPush(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
	token, err := m.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": m.Shortcode,
		"Password":          m.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            in.Amount.IntPart(),
		"PartyA":            in.PhoneNumber,
		"PartyB":            m.Shortcode,
		"PhoneNumber":       in.PhoneNumber,
		"CallBackURL":       m.CallbackURL,
		"AccountReference":  truncate(in.AccountReference, 12),
		"TransactionDesc":   truncate(in.Description, 13),
	}

	var result STKPushResult
	if err := m.post(ctx, token, "/mpesa/stkpush/v1/processrequest", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

/* ===================== STK status query ===================== */

type STKQueryResult struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// QueryStatus asks the gateway for the outcome of an earlier push.
func (m *MpesaClient) QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error) {
	token, err := m.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": m.Shortcode,
		"Password":          m.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var result STKQueryResult
	if err := m.post(ctx, token, "/mpesa/stkpushquery/v1/query", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *MpesaClient) post(ctx context.Context, token, path string, payload interface{}, out interface{}) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return helper.NewGatewayError("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return helper.NewGatewayError("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return helper.NewGatewayError("call gateway", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return helper.NewGatewayError("read gateway response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return helper.NewGatewayError(fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}
	if err := sonic.Unmarshal(respBody, out); err != nil {
		return helper.NewGatewayError("decode gateway response", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

/* ===================== Callback parsing ===================== */

type callbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []callbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the flattened view of one stkCallback notification.
// Metadata fields are only present on success (ResultCode == 0).
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	Amount          decimal.Decimal
	Receipt         string
	TransactionDate *time.Time
	PhoneNumber     string
}

// ParseCallback decodes a raw Daraja callback body. Pure; no I/O.
func ParseCallback(raw []byte) (*CallbackResult, error) {
	var env callbackEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback missing CheckoutRequestID")
	}

	result := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			switch v := item.Value.(type) {
			case float64:
				result.Amount = decimal.NewFromFloat(v)
			case string:
				if d, err := decimal.NewFromString(v); err == nil {
					result.Amount = d
				}
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				result.Receipt = v
			}
		case "TransactionDate":
			// numeric YYYYMMDDHHMMSS
			s := fmt.Sprintf("%.0f", item.Value)
			if v, ok := item.Value.(string); ok {
				s = v
			}
			if ts, err := time.ParseInLocation("20060102150405", s, time.Local); err == nil {
				result.TransactionDate = &ts
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				result.PhoneNumber = fmt.Sprintf("%.0f", v)
			case string:
				result.PhoneNumber = v
			}
		}
	}
	return result, nil
}

/* ===================== Phone normalization ===================== */

const defaultCountryCode = "254"

func countryCode() string {
	if configs.MpesaCountryCode != "" {
		return configs.MpesaCountryCode
	}
	return defaultCountryCode
}

// NormalizePhone canonicalizes an MSISDN to <country code>XXXXXXXXX.
// The country code comes from MPESA_COUNTRY_CODE (default 254, Kenya).
// Accepts 07XXXXXXXX, 7XXXXXXXX, +2547XXXXXXXX and 2547XXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	cc := countryCode()

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, cc) && len(digits) == len(cc)+9:
		// already canonical
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = cc + digits[1:]
	case len(digits) == 9 && (digits[0] == '7' || digits[0] == '1'):
		digits = cc + digits
	default:
		return "", helper.NewValidationError("phone_number", "must be a valid mobile phone number")
	}
	return digits, nil
}

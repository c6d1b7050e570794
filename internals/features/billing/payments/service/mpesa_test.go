package service

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afyacare_backend/internals/configs"
)

func testClient(baseURL string) *MpesaClient {
	return &MpesaClient{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/billing/mpesa/callback",
		BaseURL:        baseURL,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
	}
}

/* ===================== Phone normalization ===================== */

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"local with zero", "0708374149", "254708374149", false},
		{"bare subscriber", "708374149", "254708374149", false},
		{"international plus", "+254708374149", "254708374149", false},
		{"already canonical", "254708374149", "254708374149", false},
		{"with separators", "0708-374 149", "254708374149", false},
		{"safaricom 1xx range", "110123456", "254110123456", false},
		{"too short", "07083", "", true},
		{"too long", "25470837414900", "", true},
		{"letters only", "not-a-phone", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneConfiguredCountryCode(t *testing.T) {
	configs.MpesaCountryCode = "255" // Tanzania
	t.Cleanup(func() { configs.MpesaCountryCode = "" })

	got, err := NormalizePhone("0708374149")
	require.NoError(t, err)
	assert.Equal(t, "255708374149", got)

	got, err = NormalizePhone("255708374149")
	require.NoError(t, err)
	assert.Equal(t, "255708374149", got)

	// the old default prefix no longer matches the canonical form
	_, err = NormalizePhone("25470837414")
	assert.Error(t, err)
}

/* ===================== Callback parsing ===================== */

func TestParseCallbackSuccess(t *testing.T) {
	raw := successCallback("ws_CO_0109202610153012345", "NLJ7RT61SV", "1500.5")

	got, err := ParseCallback(raw)
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_0109202610153012345", got.CheckoutRequestID)
	assert.Equal(t, 0, got.ResultCode)
	assert.Equal(t, "NLJ7RT61SV", got.Receipt)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1500.5")), "amount = %s", got.Amount)
	assert.Equal(t, "254708374149", got.PhoneNumber)
	require.NotNil(t, got.TransactionDate)
	assert.Equal(t, 2026, got.TransactionDate.Year())
}

func TestParseCallbackFailureHasNoMetadata(t *testing.T) {
	raw := failureCallback("ws_CO_xyz", 1037, "DS timeout")

	got, err := ParseCallback(raw)
	require.NoError(t, err)
	assert.Equal(t, 1037, got.ResultCode)
	assert.Equal(t, "DS timeout", got.ResultDesc)
	assert.Empty(t, got.Receipt)
	assert.True(t, got.Amount.IsZero())
}

func TestParseCallbackRejectsMissingCheckoutID(t *testing.T) {
	_, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`))
	assert.Error(t, err)
}

/* ===================== OAuth token ===================== */

func TestAccessTokenIsCached(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	for i := 0; i < 3; i++ {
		tok, err := client.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, 1, calls, "token must be fetched once and then served from cache")
}

func TestAccessTokenRefreshesWhenExpired(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"tok-fresh","expires_in":"3599"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.token = "tok-stale"
	client.tokenExpiry = time.Now().Add(30 * time.Second) // inside the refresh margin

	tok, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", tok)
	assert.Equal(t, 1, calls)
}

func TestAccessTokenErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).AccessToken(context.Background())
	assert.Error(t, err)
}

/* ===================== STK push wire format ===================== */

func TestSTKPushRequestBody(t *testing.T) {
	var pushed map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
		case "/mpesa/stkpush/v1/processrequest":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&pushed))
			_, _ = w.Write([]byte(`{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	result, err := client.STKPush(context.Background(), STKPushInput{
		PhoneNumber:      "254708374149",
		Amount:           decimal.RequireFromString("1500.00"),
		AccountReference: "INV2026090001XXL", // longer than the 12-char limit
		Description:      "a very long transaction description",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted())
	assert.Equal(t, "ws_CO_1", result.CheckoutRequestID)

	assert.Equal(t, "CustomerPayBillOnline", pushed["TransactionType"])
	assert.Equal(t, "254708374149", pushed["PhoneNumber"])
	assert.Equal(t, "174379", pushed["PartyB"])
	assert.Equal(t, float64(1500), pushed["Amount"], "amounts are whole shillings on the wire")
	assert.Len(t, pushed["AccountReference"], 12)
	assert.Len(t, pushed["TransactionDesc"], 13)

	// password = base64(shortcode + passkey + timestamp)
	ts, _ := pushed["Timestamp"].(string)
	require.Len(t, ts, 14)
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + ts))
	assert.Equal(t, wantPassword, pushed["Password"])
}

func TestSTKPushGatewayHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).STKPush(context.Background(), STKPushInput{
		PhoneNumber: "254708374149",
		Amount:      decimal.RequireFromString("100.00"),
	})
	assert.Error(t, err)
}

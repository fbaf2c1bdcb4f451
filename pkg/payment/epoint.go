package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// EpointClient implements Gateway against the E-point API. Requests carry a
// base64-encoded JSON payload plus a signature computed as
// base64(sha1(secret + payload + secret)); webhooks are verified the same
// way before being decoded.
type EpointClient struct {
	apiURL      string
	publicKey   string
	secretKey   string
	frontendURL string
	httpClient  *http.Client
}

func NewEpointClient(apiURL, publicKey, secretKey, frontendURL string) *EpointClient {
	return &EpointClient{
		apiURL:      strings.TrimRight(apiURL, "/"),
		publicKey:   publicKey,
		secretKey:   secretKey,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// intentPayload field order matters: the provider validates the signature
// over the encoded JSON, and its docs fix the key order.
type intentPayload struct {
	PublicKey          string `json:"public_key"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Language           string `json:"language"`
	Description        string `json:"description,omitempty"`
	OrderID            string `json:"order_id"`
	SuccessRedirectURL string `json:"success_redirect_url"`
	ErrorRedirectURL   string `json:"error_redirect_url"`
}

type intentResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Transaction string `json:"transaction"`
	RedirectURL string `json:"redirect_url"`
}

func (c *EpointClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	payload := intentPayload{
		PublicKey:          c.publicKey,
		Amount:             req.Amount.StringFixed(2),
		Currency:           req.Currency,
		Language:           "az",
		Description:        req.Description,
		OrderID:            req.OrderID,
		SuccessRedirectURL: c.frontendURL + "/checkout/success",
		ErrorRedirectURL:   c.frontendURL + "/checkout/cancel",
	}

	body, err := c.post(ctx, "/request", payload)
	if err != nil {
		return nil, err
	}

	var resp intentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("epoint: decoding response: %w", err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("epoint: %s", resp.Message)
	}
	if resp.RedirectURL == "" {
		return nil, fmt.Errorf("epoint: response has no redirect URL")
	}

	return &Intent{
		TransactionID: resp.Transaction,
		RedirectURL:   resp.RedirectURL,
		RawResponse:   string(body),
	}, nil
}

type statusPayload struct {
	PublicKey     string `json:"public_key"`
	TransactionID string `json:"transaction_id"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *EpointClient) QueryStatus(ctx context.Context, transactionID string) (Status, error) {
	body, err := c.post(ctx, "/get-status", statusPayload{
		PublicKey:     c.publicKey,
		TransactionID: transactionID,
	})
	if err != nil {
		return "", err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("epoint: decoding status response: %w", err)
	}
	if resp.Status == "error" {
		return "", fmt.Errorf("epoint: %s", resp.Message)
	}

	return normalizeStatus(resp.Status), nil
}

type webhookPayload struct {
	OrderID     string `json:"order_id"`
	Transaction string `json:"transaction"`
	Status      string `json:"status"`
}

func (c *EpointClient) VerifyWebhook(data, signature string) (*WebhookEvent, error) {
	expected := c.sign(data)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignatureInvalid
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("epoint: decoding webhook data: %w", err)
	}

	var payload webhookPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("epoint: parsing webhook data: %w", err)
	}
	if payload.OrderID == "" || payload.Transaction == "" || payload.Status == "" {
		return nil, fmt.Errorf("epoint: webhook data missing required fields")
	}

	return &WebhookEvent{
		OrderID:       payload.OrderID,
		TransactionID: payload.Transaction,
		Status:        normalizeStatus(payload.Status),
		RawStatus:     payload.Status,
	}, nil
}

// sign computes base64(sha1(secret + data + secret)).
func (c *EpointClient) sign(data string) string {
	sum := sha1.Sum([]byte(c.secretKey + data + c.secretKey))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (c *EpointClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("epoint: encoding payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	form := url.Values{}
	form.Set("data", encoded)
	form.Set("signature", c.sign(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("epoint: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("epoint: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("epoint: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/comicink/backend-tees/internal/money"
)

// PayPal implements Gateway against the Orders v2 API. Access tokens
// from the client-credentials grant are cached until shortly before
// their expiry.
type PayPal struct {
	BaseURL  string
	ClientID string
	Secret   string
	Client   *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func (p *PayPal) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (p *PayPal) base() string {
	return strings.TrimRight(p.BaseURL, "/")
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && time.Now().Before(p.tokenExp) {
		return p.token, nil
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base()+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.ClientID, p.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	p.token = payload.AccessToken
	p.tokenExp = time.Now().Add(time.Duration(payload.ExpiresIn-60) * time.Second)
	return p.token, nil
}

// FormatAmount renders minor units as the provider's decimal string.
func FormatAmount(v money.Amount) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", neg, v/100, v%100)
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// CreateOrder creates a provider order carrying the full breakdown.
func (p *PayPal) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	tok, err := p.accessToken(ctx)
	if err != nil {
		return GatewayOrder{}, err
	}
	cur := req.Currency
	b := req.Breakdown
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.ReferenceID,
			"amount": map[string]any{
				"currency_code": cur,
				"value":         FormatAmount(b.Total),
				"breakdown": map[string]any{
					"item_total": paypalAmount{cur, FormatAmount(b.Subtotal)},
					"discount":   paypalAmount{cur, FormatAmount(b.Discount)},
					"shipping":   paypalAmount{cur, FormatAmount(b.Shipping)},
					"tax_total":  paypalAmount{cur, FormatAmount(b.Tax)},
				},
			},
		}},
	}
	raw, err := p.post(ctx, tok, "/v2/checkout/orders", body)
	if err != nil {
		return GatewayOrder{}, err
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return GatewayOrder{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	g := GatewayOrder{ID: out.ID, Status: normalizeStatus(out.Status)}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			g.ApproveURL = l.Href
		}
	}
	return g, nil
}

// CaptureOrder captures an approved provider order.
func (p *PayPal) CaptureOrder(ctx context.Context, gatewayOrderID string) (CaptureResult, error) {
	tok, err := p.accessToken(ctx)
	if err != nil {
		return CaptureResult{}, err
	}
	raw, err := p.post(ctx, tok, "/v2/checkout/orders/"+url.PathEscape(gatewayOrderID)+"/capture", map[string]any{})
	if err != nil {
		return CaptureResult{}, err
	}
	var out struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	res := CaptureResult{Status: normalizeStatus(out.Status), Raw: raw}
	for _, pu := range out.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.ID != "" {
				res.TransactionID = c.ID
			}
		}
	}
	return res, nil
}

func (p *PayPal) post(ctx context.Context, tok, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base()+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrCaptureDeclined, strings.TrimSpace(string(raw)))
	default:
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
}

func normalizeStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "COMPLETED":
		return StatusPaid
	case "APPROVED":
		return StatusApproved
	case "DECLINED", "VOIDED":
		return StatusDeclined
	default:
		return StatusCreated
	}
}

var _ Gateway = (*PayPal)(nil)

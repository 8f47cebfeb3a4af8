package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

var kopeksPerRuble = decimal.NewFromInt(100)

// TochkaClient talks to the Tochka bank API: dynamic SBP QR codes for
// collection, the acquiring operations endpoint for status polling.
type TochkaClient struct {
	baseURL      string
	jwtToken     string
	customerCode string
	merchantID   string
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewTochkaClient(baseURL, jwtToken, customerCode, merchantID string, logger *slog.Logger) *TochkaClient {
	return &TochkaClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		jwtToken:     jwtToken,
		customerCode: customerCode,
		merchantID:   merchantID,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

type tochkaQRRequest struct {
	Data tochkaQRData `json:"Data"`
}

type tochkaQRData struct {
	// Amount is in kopeks.
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PaymentPurpose string `json:"paymentPurpose"`
	// QrcType 02 means a dynamic one-payment QR.
	QrcType       string `json:"qrcType"`
	SourceAccount string `json:"sourceAccount"`
}

type tochkaQRResponse struct {
	Data struct {
		QrcID   string `json:"qrcId"`
		ID      string `json:"id"`
		Payload string `json:"payload"`
		QRURL   string `json:"qrUrl"`
		Image   string `json:"image"`
	} `json:"Data"`
}

// CreatePayment registers a dynamic SBP QR code for the requested amount.
func (c *TochkaClient) CreatePayment(ctx context.Context, req CreateRequest) (*Intent, error) {
	body := tochkaQRRequest{Data: tochkaQRData{
		Amount:         req.Amount.Mul(kopeksPerRuble).IntPart(),
		Currency:       "RUB",
		PaymentPurpose: req.Purpose,
		QrcType:        "02",
		SourceAccount:  c.customerCode,
	}}

	var resp tochkaQRResponse
	url := fmt.Sprintf("%s/sbp/v1.0/%s/qr-codes", c.baseURL, c.customerCode)
	if err := c.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, fmt.Errorf("create sbp qr: %w", err)
	}

	externalID := resp.Data.QrcID
	if externalID == "" {
		externalID = resp.Data.ID
	}
	paymentURL := resp.Data.Payload
	if paymentURL == "" {
		paymentURL = resp.Data.QRURL
	}
	if externalID == "" || paymentURL == "" {
		return nil, fmt.Errorf("create sbp qr: incomplete response: %w", sentinel.ErrUnavailable)
	}

	c.logger.Info("sbp qr created", "external_id", externalID)
	return &Intent{ExternalID: externalID, PaymentURL: paymentURL, QRImage: resp.Data.Image}, nil
}

type tochkaOperationResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"Data"`
}

var tochkaStatuses = map[string]domain.PaymentStatus{
	"completed":  domain.PaymentSucceeded,
	"paid":       domain.PaymentSucceeded,
	"success":    domain.PaymentSucceeded,
	"succeeded":  domain.PaymentSucceeded,
	"cancelled":  domain.PaymentCancelled,
	"canceled":   domain.PaymentCancelled,
	"rejected":   domain.PaymentCancelled,
	"failed":     domain.PaymentFailed,
	"pending":    domain.PaymentPending,
	"processing": domain.PaymentProcessing,
}

// GetPaymentStatus polls the bank for one operation's status.
func (c *TochkaClient) GetPaymentStatus(ctx context.Context, externalID string) (domain.PaymentStatus, error) {
	var resp tochkaOperationResponse
	url := fmt.Sprintf("%s/acquiring/v1.0/%s/operations/%s", c.baseURL, c.customerCode, externalID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return "", fmt.Errorf("get payment status: %w", err)
	}

	status, ok := tochkaStatuses[strings.ToLower(resp.Data.Status)]
	if !ok {
		return domain.PaymentPending, nil
	}
	return status, nil
}

func (c *TochkaClient) do(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.jwtToken)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("tochka request failed",
			"method", method, "url", url, "status", resp.StatusCode, "body", string(raw))
		return fmt.Errorf("tochka status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

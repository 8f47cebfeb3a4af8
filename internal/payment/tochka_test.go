package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

type TochkaSuite struct {
	suite.Suite
	ctx context.Context
}

func TestTochkaSuite(t *testing.T) {
	suite.Run(t, new(TochkaSuite))
}

func (s *TochkaSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *TochkaSuite) client(baseURL string) *TochkaClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTochkaClient(baseURL, "token-123", "CUST123", "merchant-1", logger)
}

func (s *TochkaSuite) TestCreatePaymentRegistersDynamicQR() {
	var got tochkaQRRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/sbp/v1.0/CUST123/qr-codes", r.URL.Path)
		s.Equal("Bearer token-123", r.Header.Get("Authorization"))
		s.NotEmpty(r.Header.Get("X-Request-Id"))
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"Data":{"qrcId":"qr-42","payload":"https://qr.nspk.ru/qr-42","image":"base64img"}}`))
	}))
	defer server.Close()

	intent, err := s.client(server.URL).CreatePayment(s.ctx, CreateRequest{
		Amount:  decimal.RequireFromString("6500.00"),
		Purpose: "Аренда велосипеда",
	})
	s.Require().NoError(err)

	s.Equal(int64(650000), got.Data.Amount)
	s.Equal("RUB", got.Data.Currency)
	s.Equal("02", got.Data.QrcType)
	s.Equal("Аренда велосипеда", got.Data.PaymentPurpose)

	s.Equal("qr-42", intent.ExternalID)
	s.Equal("https://qr.nspk.ru/qr-42", intent.PaymentURL)
	s.Equal("base64img", intent.QRImage)
}

func (s *TochkaSuite) TestCreatePaymentAlternateFieldNames() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Data":{"id":"op-7","qrUrl":"https://pay.example/op-7"}}`))
	}))
	defer server.Close()

	intent, err := s.client(server.URL).CreatePayment(s.ctx, CreateRequest{
		Amount: decimal.RequireFromString("100.50"),
	})
	s.Require().NoError(err)
	s.Equal("op-7", intent.ExternalID)
	s.Equal("https://pay.example/op-7", intent.PaymentURL)
}

func (s *TochkaSuite) TestCreatePaymentIncompleteResponse() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Data":{"qrcId":"qr-42"}}`))
	}))
	defer server.Close()

	_, err := s.client(server.URL).CreatePayment(s.ctx, CreateRequest{Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func (s *TochkaSuite) TestCreatePaymentServerError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := s.client(server.URL).CreatePayment(s.ctx, CreateRequest{Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func (s *TochkaSuite) TestGetPaymentStatusMapsBankStatuses() {
	status := "Completed"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/acquiring/v1.0/CUST123/operations/op-7", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"Data": map[string]string{"status": status}})
	}))
	defer server.Close()

	client := s.client(server.URL)

	got, err := client.GetPaymentStatus(s.ctx, "op-7")
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, got)

	status = "rejected"
	got, err = client.GetPaymentStatus(s.ctx, "op-7")
	s.Require().NoError(err)
	s.Equal(domain.PaymentCancelled, got)

	// Statuses the mapping does not know stay pending.
	status = "somethingNew"
	got, err = client.GetPaymentStatus(s.ctx, "op-7")
	s.Require().NoError(err)
	s.Equal(domain.PaymentPending, got)
}

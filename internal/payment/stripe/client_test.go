package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentIntent(t *testing.T) {
	t.Run("posts the form-encoded request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
				t.Errorf("authorization = %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
				t.Errorf("content-type = %q", got)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if got := r.PostForm.Get("amount"); got != "20000" {
				t.Errorf("amount = %q", got)
			}
			if got := r.PostForm.Get("currency"); got != "usd" {
				t.Errorf("currency = %q", got)
			}
			if got := r.PostForm.Get("metadata[orderId]"); got != "ord-1" {
				t.Errorf("metadata[orderId] = %q", got)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret","status":"requires_payment_method","amount":20000,"currency":"usd"}`))
		}))
		defer srv.Close()

		c := NewClient("sk_test_123", WithBaseURL(srv.URL))
		intent, err := c.CreatePaymentIntent(context.Background(), CreateIntentParams{
			Amount:   20000,
			Currency: "usd",
			Metadata: map[string]string{"orderId": "ord-1"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if intent.ID != "pi_1" || intent.ClientSecret != "pi_1_secret" {
			t.Fatalf("intent = %+v", intent)
		}
	})

	t.Run("maps API errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":{"message":"Your card was declined.","type":"card_error","code":"card_declined"}}`))
		}))
		defer srv.Close()

		c := NewClient("sk_test_123", WithBaseURL(srv.URL))
		_, err := c.CreatePaymentIntent(context.Background(), CreateIntentParams{Amount: 100, Currency: "usd"})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Type != "card_error" {
			t.Fatalf("apiErr = %+v", apiErr)
		}
	})

	t.Run("non-JSON error bodies still map", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>502</html>"))
		}))
		defer srv.Close()

		c := NewClient("sk_test_123", WithBaseURL(srv.URL))
		_, err := c.CreatePaymentIntent(context.Background(), CreateIntentParams{Amount: 100, Currency: "usd"})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusBadGateway {
			t.Fatalf("status = %d", apiErr.StatusCode)
		}
	})
}

func TestGetPaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/payment_intents/pi_1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_1","status":"succeeded","metadata":{"orderId":"ord-1","userId":"u1"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test_123", WithBaseURL(srv.URL))
	intent, err := c.GetPaymentIntent(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Status != "succeeded" {
		t.Fatalf("status = %q", intent.Status)
	}
	if intent.Metadata["userId"] != "u1" {
		t.Fatalf("metadata = %v", intent.Metadata)
	}
}

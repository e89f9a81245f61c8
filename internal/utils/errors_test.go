package utils

import (
	"net/http"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	err := NewError(ErrorCodeInternalError, "boom", http.StatusInternalServerError)
	want := "[INTERNAL_ERROR] boom"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNewGateBlockedError(t *testing.T) {
	err := NewGateBlockedError()
	if err.Code != ErrorCodeGateBlocked {
		t.Fatalf("Code = %q, want %q", err.Code, ErrorCodeGateBlocked)
	}
	if err.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("StatusCode = %d, want %d", err.StatusCode, http.StatusPaymentRequired)
	}
}

func TestNewProviderErrorCarriesProviderDetail(t *testing.T) {
	err := NewProviderError("rapidapi", "upstream 503")
	if err.Code != ErrorCodeProvider {
		t.Fatalf("Code = %q, want %q", err.Code, ErrorCodeProvider)
	}
	if err.Message != "upstream 503" {
		t.Fatalf("Message = %q, want %q", err.Message, "upstream 503")
	}
	if err.Details["provider"] != "rapidapi" {
		t.Fatalf("Details[provider] = %v, want %q", err.Details["provider"], "rapidapi")
	}
}

func TestNewUploadTransportErrorStatusByTransience(t *testing.T) {
	transient := NewUploadTransportError(true, "timeout")
	if transient.StatusCode != http.StatusBadGateway {
		t.Fatalf("transient StatusCode = %d, want %d", transient.StatusCode, http.StatusBadGateway)
	}

	permanent := NewUploadTransportError(false, "rejected")
	if permanent.StatusCode != http.StatusBadRequest {
		t.Fatalf("permanent StatusCode = %d, want %d", permanent.StatusCode, http.StatusBadRequest)
	}
}

func TestNewSizeExceededErrorDetails(t *testing.T) {
	err := NewSizeExceededError(123456)
	if err.Details["size_bytes"] != int64(123456) {
		t.Fatalf("Details[size_bytes] = %v, want %d", err.Details["size_bytes"], 123456)
	}
	if err.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("StatusCode = %d, want %d", err.StatusCode, http.StatusRequestEntityTooLarge)
	}
}

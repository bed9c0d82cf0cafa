package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("X-Test", "1").
		Payload(map[string]int{"records": 3}).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["records"] != 3 {
		t.Errorf("records = %d, want 3", body["records"])
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *JSONResponseBuilder
		wantCode int
		wantErr  string
	}{
		{"bad request", BadRequestError("bad start"), http.StatusBadRequest, CodeBadRequest},
		{"invalid range", InvalidRangeError("start after end"), http.StatusUnprocessableEntity, CodeInvalidRange},
		{"unavailable", UnavailableError("down"), http.StatusServiceUnavailable, CodeUnavailable},
		{"internal", InternalServerError("oops"), http.StatusInternalServerError, CodeInternal},
		{"method", MethodNotAllowedError("POST"), http.StatusMethodNotAllowed, CodeMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
			}
		})
	}
}

func TestUnavailableErrorSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	UnavailableError("down").Write(w)
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After not set")
	}
}

func TestMethodNotAllowedSetsAllow(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(w)
	if w.Header().Get("Allow") != "POST" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Payload(math.Inf(1)).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

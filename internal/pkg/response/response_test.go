package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		success bool
		code    string
	}{
		{"created", func(w http.ResponseWriter) { Created(w, map[string]string{"id": "t-1"}) }, http.StatusCreated, true, ""},
		{"unprocessable", func(w http.ResponseWriter) { Unprocessable(w, "INVALID_LICENSE_TYPE", "bad") }, http.StatusUnprocessableEntity, false, "INVALID_LICENSE_TYPE"},
		{"payment required", func(w http.ResponseWriter) { PaymentRequired(w, "short", nil) }, http.StatusPaymentRequired, false, "INSUFFICIENT_FUNDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success != tt.success {
				t.Fatalf("expected success=%v, got %s", tt.success, w.Body.String())
			}
			if tt.code != "" && (body.Error == nil || body.Error.Code != tt.code) {
				t.Fatalf("expected code %s, got %s", tt.code, w.Body.String())
			}
		})
	}
}

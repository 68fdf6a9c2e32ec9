package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

const maxReportBytes = 16 << 10

// cspReport logs a browser's Content-Security-Policy violation report
func cspReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Report map[string]any `json:"csp-report"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxReportBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Report == nil {
		response.Detail(w, http.StatusBadRequest, "Invalid report.")
		return
	}

	logging.FromContext(r.Context()).Warn("csp violation",
		zap.String("client_ip", middleware.ClientIP(r)),
		zap.Any("blocked_uri", body.Report["blocked-uri"]),
		zap.Any("violated_directive", body.Report["violated-directive"]),
		zap.Any("document_uri", body.Report["document-uri"]),
	)
	w.WriteHeader(http.StatusNoContent)
}

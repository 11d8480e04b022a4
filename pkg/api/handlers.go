/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: handlers.go
Description: Route handlers. Request bodies decode into the mvt option structs;
results and errors are written with the shared JSON envelopes.
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/config"
	"github.com/kleascm/fvm/pkg/history"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/kleascm/fvm/pkg/mobile"
	"github.com/kleascm/fvm/pkg/mvt"
)

// ScanResponse is the success body of every mvt route
type ScanResponse struct {
	*logparse.ParseResult
	ScanID string `json:"scan_id"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type setKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleCheckADB(w http.ResponseWriter, r *http.Request) {
	var opts mvt.CheckADBOptions
	if !s.decode(w, r, &opts) {
		return
	}
	scan, err := s.deps.Scanner.CheckADB(r.Context(), opts)
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleCheckAndroidQF(w http.ResponseWriter, r *http.Request) {
	var opts mvt.CheckAndroidQFOptions
	if !s.decode(w, r, &opts) {
		return
	}
	scan, err := s.deps.Scanner.CheckAndroidQF(r.Context(), opts)
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleCheckBackup(w http.ResponseWriter, r *http.Request) {
	var opts mvt.CheckBackupOptions
	if !s.decode(w, r, &opts) {
		return
	}
	scan, err := s.deps.Scanner.CheckBackup(r.Context(), opts)
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleCheckBugreport(w http.ResponseWriter, r *http.Request) {
	var opts mvt.CheckBugreportOptions
	if !s.decode(w, r, &opts) {
		return
	}
	scan, err := s.deps.Scanner.CheckBugreport(r.Context(), opts)
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleCheckIOCs(w http.ResponseWriter, r *http.Request) {
	var opts mvt.CheckIOCsOptions
	if !s.decode(w, r, &opts) {
		return
	}
	scan, err := s.deps.Scanner.CheckIOCs(r.Context(), opts)
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleDownloadAPKs(w http.ResponseWriter, r *http.Request) {
	var opts mvt.DownloadAPKsOptions
	if !s.decode(w, r, &opts) {
		return
	}
	scan, err := s.deps.Scanner.DownloadAPKs(r.Context(), opts)
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleDownloadIOCs(w http.ResponseWriter, r *http.Request) {
	scan, err := s.deps.Scanner.DownloadIOCs(r.Context())
	s.writeScan(w, r, scan, err)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.deps.Devices.ListDevices(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"devices": devices,
	})
}

// handleDevice resolves the serial against `adb devices` before reading its properties
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	serial := r.PathValue("serial")
	devices, err := s.deps.Devices.ListDevices(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var device *mobile.Device
	for i := range devices {
		if devices[i].ID == serial {
			device = &devices[i]
			break
		}
	}
	switch {
	case device == nil:
		s.writeError(w, r, apperr.New(apperr.DeviceNotFound, map[string]interface{}{"serial": serial}))
		return
	case device.State == mobile.StateUnauthorized:
		s.writeError(w, r, apperr.New(apperr.DeviceUnauthorized, map[string]interface{}{"serial": serial}))
		return
	}

	summary, err := s.deps.Devices.Summary(r.Context(), serial)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"device":  device,
		"summary": summary,
	})
}

func (s *Server) handleSetVTKey(w http.ResponseWriter, r *http.Request) {
	var req setKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.APIKey == "" {
		s.writeError(w, r, apperr.New(apperr.MissingValue, map[string]interface{}{"parameter": "api_key"}).
			WithDetail("A chave da API do VirusTotal não foi informada."))
		return
	}
	if err := s.deps.Keys.Set(config.VirusTotalKey, req.APIKey); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "A chave da API do VirusToatal foi definida com sucesso!",
	})
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	limit := historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, apperr.New(apperr.ParameterInvalid, map[string]interface{}{"limit": raw}))
			return
		}
		if n < limit {
			limit = n
		}
	}

	records, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"scans":   records,
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	record, err := s.deps.History.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"scan":    record,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"success": false,
		"error":   "Esta página não existe.",
	})
}

// decode reads an optional JSON body into v. It reports false after writing an error.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.deps.MaxBody)
	err := json.NewDecoder(body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, r, apperr.Wrap(apperr.InvalidInput, err, map[string]interface{}{"limit": tooLarge.Limit}).
			WithDetail("Corpo da requisição excede o tamanho permitido."))
		return false
	}
	s.writeError(w, r, apperr.Wrap(apperr.InvalidInput, err, nil))
	return false
}

func (s *Server) writeScan(w http.ResponseWriter, r *http.Request, scan *mvt.Scan, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ScanResponse{ParseResult: scan.Result, ScanID: scan.ID})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	entry := s.logger.WithFields(appErr.Fields()).WithField("request_id", RequestID(r.Context()))
	if appErr.Status() >= http.StatusInternalServerError {
		entry.Error(appErr.Code.Info().InternalMessage)
	} else {
		entry.Warn(appErr.Code.Info().InternalMessage)
	}
	s.writeJSON(w, appErr.Status(), appErr.Response())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Failed to write response")
	}
}

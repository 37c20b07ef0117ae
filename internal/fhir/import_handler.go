package fhir

import (
	"context"
	"encoding/json"
	"net/http"

	"smartlaunch/internal/oauth"
	"smartlaunch/pkg/logging"
)

// SessionLookup resolves the session ids issued by the callback.
// *oauth.SessionStore implements it.
type SessionLookup interface {
	Get(id string) *oauth.Credential
	Delete(id string)
}

// PatientReader fetches a Patient. *Client implements it.
type PatientReader interface {
	GetPatient(ctx context.Context, patientID, accessToken string) (*Patient, error)
}

// ImportHandler serves GET /patients/import?session=, the continuation after
// a successful callback with patient context.
type ImportHandler struct {
	sessions SessionLookup
	patients PatientReader
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(sessions SessionLookup, patients PatientReader) *ImportHandler {
	return &ImportHandler{sessions: sessions, patients: patients}
}

// ImportResult is the JSON body returned on success.
type ImportResult struct {
	Patient     *Patient `json:"patient"`
	EncounterID string   `json:"encounter,omitempty"`
	Scope       string   `json:"scope,omitempty"`
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	cred := h.sessions.Get(sessionID)
	if sessionID == "" || cred == nil {
		logging.Warn("FHIR", "Import requested for unknown session=%s", logging.TruncateID(sessionID))
		writeText(w, http.StatusBadRequest, "Invalid session")
		return
	}

	patient, err := h.patients.GetPatient(r.Context(), cred.PatientID, cred.AccessToken.Value())
	if err != nil {
		logging.Error("FHIR", err, "Failed to fetch patient for session=%s", logging.TruncateID(sessionID))
		writeText(w, http.StatusInternalServerError, "Failed to fetch patient: "+err.Error())
		return
	}

	h.sessions.Delete(sessionID)
	logging.Info("FHIR", "Imported Patient/%s", patient.ID)

	oauth.SetSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ImportResult{
		Patient:     patient,
		EncounterID: cred.EncounterID,
		Scope:       cred.Scope,
	})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	oauth.SetSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

package fhir

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const patientJSON = `{
  "resourceType": "Patient",
  "id": "123",
  "name": [
    {"use": "official", "family": "Smith", "given": ["John", "Michael"]},
    {"use": "nickname", "given": ["Johnny"]}
  ],
  "gender": "male",
  "birthDate": "1970-01-01"
}`

func TestClient_GetPatient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fhir/Patient/123", r.URL.Path)
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/fhir+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/fhir+json")
		_, _ = w.Write([]byte(patientJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/fhir/", nil, 0)
	p, err := c.GetPatient(context.Background(), "123", "at-1")
	require.NoError(t, err)

	assert.Equal(t, &Patient{
		ID:          "123",
		DisplayName: "John Michael Smith",
		BirthDate:   "1970-01-01",
		Gender:      "male",
	}, p)
}

func TestClient_GetPatient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"resourceType":"OperationOutcome"}`, "status 401"},
		{"not json", http.StatusOK, `<Patient/>`, "not valid JSON"},
		{"wrong resource", http.StatusOK, `{"resourceType":"OperationOutcome"}`, "unexpected resourceType"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil, 0).GetPatient(context.Background(), "123", "at")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestClient_GetPatient_ResourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil, 0).GetPatient(context.Background(), "missing", "at")

	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, http.StatusNotFound, resErr.StatusCode)
	assert.Equal(t, "Patient/missing", resErr.Resource)
}

func TestClient_GetPatient_InvalidArguments(t *testing.T) {
	c := NewClient("https://fhir.test", nil, 0)

	_, err := c.GetPatient(context.Background(), "", "at")
	assert.Error(t, err)
	_, err = c.GetPatient(context.Background(), "123", "")
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		names string
		want  string
	}{
		{"given and family", `[{"given":["Jane"],"family":"Doe"}]`, "Jane Doe"},
		{"family only", `[{"family":"Doe"}]`, "Doe"},
		{"given only", `[{"given":["Jane","Ann"]}]`, "Jane Ann"},
		{"text only", `[{"text":"Dr. Jane Doe"}]`, "Dr. Jane Doe"},
		{"empty entry", `[{}]`, UnknownPatientName},
		{"no names", `[]`, UnknownPatientName},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DisplayName(gjson.Parse(tc.names)))
		})
	}

	assert.Equal(t, UnknownPatientName, DisplayName(gjson.Get(`{}`, "name")))
}

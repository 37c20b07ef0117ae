// Package server exposes the launch service over HTTP.
//
// Routes:
//
//   - GET /auth/launch      - EHR launch, redirects to the authorization server
//   - GET /auth/standalone  - standalone launch against the configured FHIR server
//   - GET /auth/callback    - authorization code redirect target
//   - GET /patients/import  - continuation after a callback with patient context
//   - GET /health           - liveness, unauthenticated
//   - GET /metrics          - Prometheus exposition
//
// Method patterns on http.ServeMux answer other methods with 405.
package server

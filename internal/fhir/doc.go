// Package fhir reads clinical resources once a token has been obtained and
// serves the /patients/import continuation endpoint.
//
// Requests are authorized through an oauth2.Transport with a static bearer
// token; resources are read as FHIR JSON and only the fields the service
// needs are extracted.
package fhir

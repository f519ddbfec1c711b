// Package docs Chakshi API.
//
// Documentation of the Chakshi case management API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//     - multipart/form-data
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/chakshi/chakshi-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the health of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/cases/{caseId} cases caseByID
// Gets a single case by ID.
// responses:
//   200: caseByIDResponse

// Shows a single case by the given {caseId}
// swagger:response caseByIDResponse
type caseByIDResponseWrapper struct {
	// in:body
	Body models.Case
}

// swagger:route GET /api/casedetails/{caseId}/payments/stats payments paymentStats
// Totals the payments recorded against a case.
// responses:
//   200: paymentStatsResponse

// swagger:response paymentStatsResponse
type paymentStatsResponseWrapper struct {
	// in:body
	Body models.PaymentStats
}

package engine

import (
	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/pkg/logger"
)

// applyServiceError records err on md and logs the full trace. Fields already
// on md are kept, so the objective, file name and anything computed before
// the failure survive.
func applyServiceError(md *ccdavalidator.ResultMetadata, err error, log *logger.Logger) ccdavalidator.ServiceError {
	se := ccdavalidator.NormalizeError(err)
	log.Error("%s", se.Trace)

	md.ServiceError = true
	md.ServiceErrorMessage = se.Message
	return se
}

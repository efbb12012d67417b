package arcgis

import (
	"errors"
	"fmt"
	"strings"
)

const (
	serviceErrorTemplateConstant        = "arcgis: %s (%d)"
	serviceErrorDetailsTemplateConstant = "arcgis: %s (%d): %s"
	detailsSeparatorConstant            = "; "
	invalidTokenCodeConstant            = 498
	tokenRequiredCodeConstant           = 499
)

// ServiceError is the error envelope returned by the REST API.
type ServiceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (serviceError *ServiceError) Error() string {
	if len(serviceError.Details) == 0 {
		return fmt.Sprintf(serviceErrorTemplateConstant, serviceError.Message, serviceError.Code)
	}
	return fmt.Sprintf(serviceErrorDetailsTemplateConstant, serviceError.Message, serviceError.Code, strings.Join(serviceError.Details, detailsSeparatorConstant))
}

// IsAuthenticationError reports whether err carries an invalid or missing token code.
func IsAuthenticationError(err error) bool {
	var serviceError *ServiceError
	if !errors.As(err, &serviceError) {
		return false
	}
	return serviceError.Code == invalidTokenCodeConstant || serviceError.Code == tokenRequiredCodeConstant
}

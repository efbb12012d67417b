package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	formatParameterConstant              = "f"
	formatJSONValueConstant              = "json"
	tokenParameterConstant               = "token"
	contentTypeHeaderConstant            = "Content-Type"
	formContentTypeConstant              = "application/x-www-form-urlencoded"
	defaultRequestTimeoutConstant        = 2 * time.Minute
	baseURLMissingMessageConstant        = "arcgis: base URL must be provided"
	requestCreationErrorTemplateConstant = "arcgis: unable to create request for %s: %w"
	requestFailedErrorTemplateConstant   = "arcgis: request to %s failed: %w"
	responseReadErrorTemplateConstant    = "arcgis: unable to read response from %s: %w"
	unexpectedStatusTemplateConstant     = "arcgis: unexpected %d response from %s: %s"
	responseDecodeErrorTemplateConstant  = "arcgis: unable to decode response from %s: %w"
	requestIssuedMessageConstant         = "ArcGIS request"
	endpointLogFieldConstant             = "endpoint"
	statusLogFieldConstant               = "status"
	maximumErrorBodyLengthConstant       = 512
)

// HTTPClient executes HTTP requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ClientConfiguration configures a REST client.
type ClientConfiguration struct {
	Token      string
	HTTPClient HTTPClient
	Logger     *zap.Logger
}

// Client issues authenticated REST requests.
type Client struct {
	token      string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient constructs a Client; a nil HTTPClient uses a client with a request timeout.
func NewClient(configuration ClientConfiguration) *Client {
	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeoutConstant}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:      strings.TrimSpace(configuration.Token),
		httpClient: httpClient,
		logger:     logger,
	}
}

type errorEnvelope struct {
	Error *ServiceError `json:"error"`
}

// doRequest posts parameters to endpoint and decodes the JSON body into target.
func (client *Client) doRequest(executionContext context.Context, endpoint string, parameters url.Values, target any) error {
	formValues := url.Values{}
	for parameterName, parameterValues := range parameters {
		formValues[parameterName] = append([]string(nil), parameterValues...)
	}
	formValues.Set(formatParameterConstant, formatJSONValueConstant)
	if len(client.token) > 0 {
		formValues.Set(tokenParameterConstant, client.token)
	}

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodPost, endpoint, strings.NewReader(formValues.Encode()))
	if requestError != nil {
		return fmt.Errorf(requestCreationErrorTemplateConstant, endpoint, requestError)
	}
	request.Header.Set(contentTypeHeaderConstant, formContentTypeConstant)

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return fmt.Errorf(requestFailedErrorTemplateConstant, endpoint, responseError)
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return fmt.Errorf(responseReadErrorTemplateConstant, endpoint, readError)
	}
	client.logger.Debug(requestIssuedMessageConstant, zap.String(endpointLogFieldConstant, endpoint), zap.Int(statusLogFieldConstant, response.StatusCode))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf(unexpectedStatusTemplateConstant, response.StatusCode, endpoint, truncate(string(responseBody)))
	}

	var envelope errorEnvelope
	if envelopeError := json.Unmarshal(responseBody, &envelope); envelopeError == nil && envelope.Error != nil {
		return envelope.Error
	}

	decoder := json.NewDecoder(bytes.NewReader(responseBody))
	decoder.UseNumber()
	if decodeError := decoder.Decode(target); decodeError != nil {
		return fmt.Errorf(responseDecodeErrorTemplateConstant, endpoint, decodeError)
	}
	return nil
}

func truncate(value string) string {
	if len(value) <= maximumErrorBodyLengthConstant {
		return value
	}
	return value[:maximumErrorBodyLengthConstant]
}

func joinURL(baseURL string, segments ...string) string {
	joined := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	for _, segment := range segments {
		joined += "/" + strings.Trim(segment, "/")
	}
	return joined
}

func requireBaseURL(baseURL string) error {
	if len(strings.TrimSpace(baseURL)) == 0 {
		return errors.New(baseURLMissingMessageConstant)
	}
	return nil
}

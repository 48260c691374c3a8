// response/success.go
/* Responsible for handling successful API responses. It reads the response body, logs the raw response details,
and unmarshals the response based on the content type. */
package response

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"go.uber.org/zap"
)

// contentHandler defines the signature for unmarshaling content from an io.Reader.
type contentHandler func(io.Reader, any, logger.Logger, string) error

// responseUnmarshallers maps MIME types to the corresponding contentHandler functions.
var responseUnmarshallers = map[string]contentHandler{
	"application/json": handlerUnmarshalJSON,
	"application/xml":  handlerUnmarshalXML,
	"text/xml":         handlerUnmarshalXML,
	"text/plain":       handlerText,
}

// HandleAPISuccessResponse reads the response body and unmarshals it into out based on the
// content type. A nil out or an empty body is not an error.
func HandleAPISuccessResponse(resp *http.Response, out any, log logger.Logger) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("Failed to read response body", zap.Error(err))
		return fmt.Errorf("reading response body: %w", err)
	}

	log.Debug("Raw HTTP Response", zap.Int("status_code", resp.StatusCode), zap.Int("bytes", len(bodyBytes)))

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}

	bodyReader := bytes.NewReader(bodyBytes)
	contentType := resp.Header.Get("Content-Type")
	contentDisposition := resp.Header.Get("Content-Disposition")

	contentTypeNoParams, _ := parseHeader(contentType)
	if handler, ok := responseUnmarshallers[contentTypeNoParams]; ok {
		return handler(bodyReader, out, log, contentType)
	}

	if isBinaryData(contentType, contentDisposition) {
		return handleBinaryData(bodyReader, log, out, contentDisposition)
	}

	// FastAPI always answers JSON; tolerate a missing Content-Type.
	if contentTypeNoParams == "" {
		return handlerUnmarshalJSON(bodyReader, out, log, contentType)
	}

	return fmt.Errorf("unexpected MIME type: %s", contentType)
}

func handlerUnmarshalJSON(reader io.Reader, out any, log logger.Logger, mimeType string) error {
	if err := json.NewDecoder(reader).Decode(out); err != nil {
		log.Debug("JSON Unmarshal error", zap.Error(err), zap.String("content_type", mimeType))
		return fmt.Errorf("decoding JSON response: %w", err)
	}
	return nil
}

func handlerUnmarshalXML(reader io.Reader, out any, log logger.Logger, mimeType string) error {
	if err := xml.NewDecoder(reader).Decode(out); err != nil {
		log.Debug("XML Unmarshal error", zap.Error(err), zap.String("content_type", mimeType))
		return fmt.Errorf("decoding XML response: %w", err)
	}
	return nil
}

// handlerText stores a plain text body into *string, or streams it to an io.Writer.
func handlerText(reader io.Reader, out any, log logger.Logger, mimeType string) error {
	switch out := out.(type) {
	case *string:
		data, err := io.ReadAll(reader)
		if err != nil {
			return err
		}
		*out = string(data)
		return nil
	case *[]byte, io.Writer:
		return handleBinaryData(reader, log, out, "")
	default:
		return fmt.Errorf("cannot decode %s into %T", mimeType, out)
	}
}

// isBinaryData checks if the MIME type or Content-Disposition indicates binary data.
func isBinaryData(contentType, contentDisposition string) bool {
	return strings.Contains(contentType, "application/octet-stream") || strings.HasPrefix(contentDisposition, "attachment")
}

// handleBinaryData reads binary data from an io.Reader and stores it in *[]byte or streams it to an io.Writer.
func handleBinaryData(reader io.Reader, log logger.Logger, out any, contentDisposition string) error {
	switch out := out.(type) {
	case *[]byte:
		data, err := io.ReadAll(reader)
		if err != nil {
			return err
		}
		*out = data

	case io.Writer:
		if _, err := io.Copy(out, reader); err != nil {
			return err
		}

	default:
		return errors.New("output parameter is not suitable for binary data (*[]byte or io.Writer)")
	}

	if contentDisposition != "" {
		_, params := parseHeader(contentDisposition)
		if filename, ok := params["filename"]; ok {
			log.Debug("Extracted filename from Content-Disposition", zap.String("filename", filename))
		}
	}

	return nil
}

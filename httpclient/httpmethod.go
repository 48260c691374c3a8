// httpclient/httpmethod.go
package httpclient

import "net/http"

/* Ref: https://www.rfc-editor.org/rfc/rfc7231#section-8.1.3

+---------+------+------------+
| Method  | Safe | Idempotent |
+---------+------+------------+
| DELETE  | no   | yes        |
| GET     | yes  | yes        |
| HEAD    | yes  | yes        |
| PATCH   | no   | no         |
| POST    | no   | no         |
| PUT     | no   | yes        |
+---------+------+------------+
*/

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// IsSupportedHTTPMethod reports whether DoRequest accepts method.
func IsSupportedHTTPMethod(method string) bool {
	return supportedMethods[method]
}

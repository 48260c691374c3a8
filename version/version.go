// version.go
package version

import "fmt"

// AppName holds the name of the application
var AppName = "go-vmconsole-client"

// Version holds the current version of the application. Overridden at build time with
// -ldflags "-X github.com/deploymenttheory/go-vmconsole-client/version.Version=...".
var Version = "0.1.0"

// UserAgentBase is the product token sent in the User-Agent header.
const UserAgentBase = "go-vmconsole-client"

// GetAppName returns the name of the application
func GetAppName() string {
	return AppName
}

// GetVersion returns the current version of the application
func GetVersion() string {
	return Version
}

// GetUserAgentHeader returns the User-Agent value for outgoing requests.
func GetUserAgentHeader() string {
	return fmt.Sprintf("%s/%s", UserAgentBase, Version)
}

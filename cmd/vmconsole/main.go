// Command vmconsole is the VM management console client.
package main

import "github.com/deploymenttheory/go-vmconsole-client/internal/cli/cmd"

func main() {
	cmd.Execute()
}

package ui

import (
	"testing"

	"github.com/deploymenttheory/go-vmconsole-client/vmapi"
	"github.com/stretchr/testify/assert"
)

func TestFormatUsage(t *testing.T) {
	assert.Equal(t, "512MiB / 2GiB (25%)", formatUsage(vmapi.Usage{Used: 512 << 20, Total: 2 << 30}))
	assert.Equal(t, "n/a", formatUsage(vmapi.Usage{Used: 1}))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "-", formatUptime(vmapi.VMStatus{}))
	assert.Equal(t, "3 days", formatUptime(vmapi.VMStatus{Uptime: 3 * 24 * 3600}))
}

func TestFraction(t *testing.T) {
	assert.Equal(t, 0.0, fraction(-5))
	assert.Equal(t, 0.25, fraction(25))
	assert.Equal(t, 1.0, fraction(250))
}

func TestStatusBadge(t *testing.T) {
	assert.Contains(t, statusBadge("running"), "running")
	assert.Contains(t, statusBadge("paused"), "paused")
	assert.Contains(t, statusBadge(""), "unknown")
}

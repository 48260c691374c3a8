package vmapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Usage is a used/total pair in bytes.
type Usage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// Percent returns Used as a percentage of Total, 0 when Total is unknown.
func (u Usage) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Used) / float64(u.Total) * 100
}

// VMStatus is a status snapshot as returned by the backend. Values are not transformed:
// CPU is whatever the backend reports, a percentage on current backends.
type VMStatus struct {
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	Memory Usage   `json:"memory"`
	Disk   Usage   `json:"disk"`
	Uptime int64   `json:"uptime"`

	Name   string `json:"name,omitempty"`
	NetIn  int64  `json:"netin,omitempty"`
	NetOut int64  `json:"netout,omitempty"`
}

// UptimeDuration returns Uptime, reported in seconds, as a duration.
func (s VMStatus) UptimeDuration() time.Duration {
	return time.Duration(s.Uptime) * time.Second
}

// Running reports whether the VM is running.
func (s VMStatus) Running() bool { return s.Status == "running" }

// VM is an entry of the VM list. The backend returns either bare ids or summary objects;
// for bare ids only ID is set.
type VM struct {
	ID     string  `json:"vmid"`
	Name   string  `json:"name,omitempty"`
	Status string  `json:"status,omitempty"`
	CPU    float64 `json:"cpu,omitempty"`
	Memory *Usage  `json:"memory,omitempty"`
}

// UnmarshalJSON accepts a string id, a numeric id or an object with a vmid field.
func (v *VM) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("vmapi: empty VM entry")
	}

	switch data[0] {
	case '"', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		id, err := decodeID(data)
		if err != nil {
			return err
		}
		*v = VM{ID: id}
		return nil
	case '{':
		var raw struct {
			ID     json.RawMessage `json:"vmid"`
			Name   string          `json:"name"`
			Status string          `json:"status"`
			CPU    float64         `json:"cpu"`
			Memory *Usage          `json:"memory"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if len(raw.ID) == 0 {
			return fmt.Errorf("vmapi: VM entry has no vmid")
		}
		id, err := decodeID(raw.ID)
		if err != nil {
			return err
		}
		*v = VM{ID: id, Name: raw.Name, Status: raw.Status, CPU: raw.CPU, Memory: raw.Memory}
		return nil
	}
	return fmt.Errorf("vmapi: unexpected VM entry %s", data)
}

func decodeID(data []byte) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("vmapi: invalid VM id %s", data)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("vmapi: invalid VM id %s", data)
	}
	return n.String(), nil
}

// ActionResult is the response to a lifecycle action.
type ActionResult struct {
	Message string `json:"message"`
}

// Action is a VM lifecycle operation.
type Action string

const (
	ActionStart    Action = "start"
	ActionStop     Action = "stop"
	ActionShutdown Action = "shutdown"
	ActionReset    Action = "reset"
)

// Actions lists the supported lifecycle operations.
var Actions = []Action{ActionStart, ActionStop, ActionShutdown, ActionReset}

// ParseAction validates a lifecycle operation name.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown VM action %q", name)
}

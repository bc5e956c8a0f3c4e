package models

import (
	"time"

	"github.com/google/uuid"
)

// Serial console log status enums.
const (
	ConsoleLogStatusPending = "Pending"
	ConsoleLogStatusRunning = "Running"
	ConsoleLogStatusSuccess = "Success"
	ConsoleLogStatusFailure = "Failure"
)

// SerialConsoleLog records one reboot attempt against a virtual machine's
// serial console, including the captured session transcript.
type SerialConsoleLog struct {
	ID               uuid.UUID `json:"id"`
	VirtualMachineID uuid.UUID `json:"virtual_machine_id"`
	Status           string    `json:"status"`
	Output           string    `json:"output,omitempty"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

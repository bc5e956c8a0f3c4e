package models

import (
	"time"

	"github.com/google/uuid"
)

type VirtualMachine struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	// Serial console SSH endpoint. The private key authenticates against
	// the cloud provider's serial console proxy, not the guest itself.
	ConsoleUser       string    `json:"console_user"`
	ConsoleHost       string    `json:"console_host"`
	ConsolePort       int       `json:"console_port"`
	ConsolePrivateKey []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

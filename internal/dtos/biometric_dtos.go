package dtos

import "time"

type RegisterKeyRequest struct {
	DeviceID     string `json:"device_id" validate:"required,max=128"`
	PublicKeyPEM string `json:"public_key_pem" validate:"required,max=4096"`
}

type DecideKeyRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=approve reject"`
}

type KeyResponse struct {
	KeyID     string     `json:"key_id"`
	State     string     `json:"state"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

type KeyStatusResponse struct {
	State string `json:"state"`
}

package auth

import "context"

// Notifier delivers OTP codes to a phone number.
// The webhook notifier is the production implementation; SNS and a
// log-only provider exist for alternative deployments and local runs.
type Notifier interface {
	// SendOTP delivers the OTP to the given phone number.
	// Returns nil on successful delivery acceptance (not necessarily receipt).
	SendOTP(ctx context.Context, phone string, otp string) error
}

// Package biometric gates sign-in behind the device's biometric capability
// and remembers a user's opt-in plus the account email it belongs to.
package biometric

import "context"

// Authenticator is the platform biometric capability: a hardware presence
// check, an enrollment check and a prompt trigger. Implementations may fail;
// the Service is the layer that translates every failure into "not available"
// or "not authenticated".
type Authenticator interface {
	HardwarePresent(ctx context.Context) (bool, error)
	Enrolled(ctx context.Context) (bool, error)
	Prompt(ctx context.Context, reason string) (bool, error)
}

// NullAuthenticator reports no biometric capability. It is the fallback when
// no platform backend can be probed, so biometric features switch off without
// breaking anything else.
type NullAuthenticator struct{}

func (NullAuthenticator) HardwarePresent(context.Context) (bool, error) { return false, nil }

func (NullAuthenticator) Enrolled(context.Context) (bool, error) { return false, nil }

func (NullAuthenticator) Prompt(context.Context, string) (bool, error) { return false, nil }

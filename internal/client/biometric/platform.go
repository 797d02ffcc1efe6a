package biometric

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
)

// Detect probes the host for a usable biometric backend. On Linux it looks
// for the fprintd tools that front the fingerprint daemon; anything it cannot
// probe degrades to the NullAuthenticator. Detection never fails.
func Detect(logger *slog.Logger) Authenticator {
	if runtime.GOOS == "linux" {
		if a, err := newFprintdAuthenticator(); err == nil {
			logger.Debug("biometric: using fprintd")
			return a
		} else {
			logger.Debug("biometric: fprintd unavailable", "error", err)
		}
	}
	return NullAuthenticator{}
}

// fprintdAuthenticator drives the fprintd command line tools. fprintd-list
// answers the hardware and enrollment questions; fprintd-verify performs the
// actual prompt, blocking until a finger matches or the attempt fails.
type fprintdAuthenticator struct {
	listPath   string
	verifyPath string
	username   string
}

func newFprintdAuthenticator() (*fprintdAuthenticator, error) {
	listPath, err := exec.LookPath("fprintd-list")
	if err != nil {
		return nil, err
	}
	verifyPath, err := exec.LookPath("fprintd-verify")
	if err != nil {
		return nil, err
	}

	username := currentUsername()
	if username == "" {
		return nil, errors.New("biometric: cannot determine current user")
	}

	return &fprintdAuthenticator{
		listPath:   listPath,
		verifyPath: verifyPath,
		username:   username,
	}, nil
}

func (a *fprintdAuthenticator) HardwarePresent(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, a.listPath, a.username).CombinedOutput()
	if err != nil {
		return false, err
	}
	// fprintd-list prints "No devices available" when the daemon runs but no
	// reader exists.
	return !strings.Contains(string(out), "No devices available"), nil
}

func (a *fprintdAuthenticator) Enrolled(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, a.listPath, a.username).CombinedOutput()
	if err != nil {
		return false, err
	}
	// "has no fingers enrolled" is fprintd's empty-enrollment message.
	return !strings.Contains(string(out), "has no fingers enrolled"), nil
}

func (a *fprintdAuthenticator) Prompt(ctx context.Context, _ string) (bool, error) {
	// fprintd-verify has no way to display a reason; the desktop shows its
	// own fingerprint UI.
	err := exec.CommandContext(ctx, a.verifyPath, a.username).Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Clean non-zero exit: the verification ran and did not match.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

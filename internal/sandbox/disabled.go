package sandbox

import (
	"context"
	"fmt"
)

// disabledClient is installed when no sandbox provider is configured.
// Provisioning always fails with ErrUnavailable so tool calls degrade
// cleanly instead of panicking on a nil client.
type disabledClient struct{}

// Disabled returns a Client that refuses to provision.
func Disabled() Client {
	return disabledClient{}
}

func (disabledClient) Connect(ctx context.Context) (string, error) {
	return "", fmt.Errorf("no sandbox provider configured")
}

func (disabledClient) Execute(ctx context.Context, remoteID, code string) (Output, error) {
	return Output{}, fmt.Errorf("no sandbox provider configured")
}

func (disabledClient) Close(ctx context.Context, remoteID string) error {
	return nil
}

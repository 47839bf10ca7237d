package identity

import "context"

// Unconfigured stands in when no identity backend is set up. Every
// credential call fails with ErrProviderUnavailable; sign-out succeeds
// because there is never a session to end.
type Unconfigured struct{}

func (Unconfigured) ProviderFor(string) Provider { return Unconfigured{} }

func (Unconfigured) CreateAccount(context.Context, string, string) (*Identity, error) {
	return nil, ErrProviderUnavailable
}

func (Unconfigured) Authenticate(context.Context, string, string) (*Identity, error) {
	return nil, ErrProviderUnavailable
}

func (Unconfigured) SignOut(context.Context) error { return nil }

func (Unconfigured) SetDisplayName(context.Context, *Identity, string) error {
	return ErrProviderUnavailable
}

func (Unconfigured) Subscribe(onChange func(*Identity)) func() {
	onChange(nil)
	return func() {}
}

package core

import (
	"context"
	"fmt"
	"strings"
)

// RequestContext is the verified ambient context the guard hands to every
// flow operation: the decoded state plus the account and provider records it
// was authorized against.
type RequestContext struct {
	State         *FlowState
	Account       Account
	Provider      Provider
	Authorization string
	PublicKey     string
}

// Guard verifies the credential proof and state token on every request
// before any flow operation runs. No upstream call happens until both the
// proof and the token pass local validation.
type Guard struct {
	directory  ContextDirectory
	codec      *StateCodec
	providerID string
}

func NewGuard(directory ContextDirectory, codec *StateCodec, providerID string) *Guard {
	if codec == nil {
		codec = NewStateCodec()
	}
	return &Guard{
		directory:  directory,
		codec:      codec,
		providerID: strings.TrimSpace(providerID),
	}
}

func (g *Guard) Codec() *StateCodec {
	if g == nil {
		return nil
	}
	return g.codec
}

// PublicKeyFromProof extracts the key material from a credential proof of
// the form base64(identifier:secret), with an optional Basic or Bearer
// prefix. Only the identifier before the first colon is key material; the
// secret never leaves this function.
func PublicKeyFromProof(authorization string) (string, error) {
	value := strings.TrimSpace(authorization)
	if value == "" {
		return "", fmt.Errorf("core: credential proof is empty")
	}
	for _, scheme := range []string{"basic ", "bearer "} {
		if len(value) > len(scheme) && strings.EqualFold(value[:len(scheme)], scheme) {
			value = strings.TrimSpace(value[len(scheme):])
			break
		}
	}
	payload, err := decodeTokenBase64(value)
	if err != nil {
		return "", fmt.Errorf("core: credential proof is not base64: %w", err)
	}
	identifier, _, _ := strings.Cut(string(payload), ":")
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("core: credential proof has no identifier")
	}
	return identifier, nil
}

// Authorize validates the proof and token, then resolves the account owning
// the key material and the provider named by the state. Account and provider
// lookups run concurrently; the first failure cancels the other.
func (g *Guard) Authorize(ctx context.Context, authorization string, token string) (RequestContext, error) {
	if g == nil || g.directory == nil {
		return RequestContext{}, fmt.Errorf("core: guard is not configured")
	}

	if strings.TrimSpace(authorization) == "" {
		return RequestContext{}, missingAuthorizationError()
	}
	publicKey, err := PublicKeyFromProof(authorization)
	if err != nil {
		return RequestContext{}, invalidCredentialsError(err)
	}

	state, err := g.codec.Decode(token)
	if err != nil {
		return RequestContext{}, err
	}
	state.EnsureRequestID()

	// A deployment pinned to one provider always wins over whatever the
	// token carries.
	if g.providerID != "" {
		state.Extend(map[string]any{StateKeyProviderID: g.providerID})
	}
	providerID := state.ProviderID()
	if providerID == "" {
		return RequestContext{}, invalidStateError(fmt.Errorf("core: state has no provider_id"))
	}

	account, provider, err := g.resolveIdentity(ctx, publicKey, providerID)
	if err != nil {
		return RequestContext{}, err
	}

	return RequestContext{
		State:         state,
		Account:       account,
		Provider:      provider,
		Authorization: authorization,
		PublicKey:     publicKey,
	}, nil
}

func (g *Guard) resolveIdentity(ctx context.Context, publicKey string, providerID string) (Account, Provider, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	accountCh := make(chan Account, 1)
	providerCh := make(chan Provider, 1)
	errCh := make(chan error, 2)

	go func() {
		account, err := g.directory.CurrentAccount(fetchCtx, publicKey)
		if err != nil {
			errCh <- invalidCredentialsError(fmt.Errorf("core: account lookup: %w", err))
			return
		}
		accountCh <- account
	}()
	go func() {
		provider, err := g.directory.RetrieveProvider(fetchCtx, publicKey, providerID)
		if err != nil {
			errCh <- invalidCredentialsError(fmt.Errorf("core: provider lookup: %w", err))
			return
		}
		providerCh <- provider
	}()

	var account Account
	var provider Provider
	haveAccount := false
	haveProvider := false
	for !haveAccount || !haveProvider {
		select {
		case account = <-accountCh:
			haveAccount = true
		case provider = <-providerCh:
			haveProvider = true
		case err := <-errCh:
			cancel()
			return Account{}, Provider{}, err
		case <-ctx.Done():
			return Account{}, Provider{}, invalidCredentialsError(ctx.Err())
		}
	}

	if account.LiveMode != provider.LiveMode {
		return Account{}, Provider{}, invalidCredentialsError(
			fmt.Errorf("core: account and provider live modes differ"),
		)
	}
	return account, provider, nil
}

package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeDirectory struct {
	mu            sync.Mutex
	accountCalls  int
	providerCalls int

	account     Account
	provider    Provider
	accountErr  error
	providerErr error

	blockProvider bool
	lastProvider  string
}

func (d *fakeDirectory) CurrentAccount(ctx context.Context, publicKey string) (Account, error) {
	d.mu.Lock()
	d.accountCalls++
	d.mu.Unlock()
	if d.accountErr != nil {
		return Account{}, d.accountErr
	}
	return d.account, nil
}

func (d *fakeDirectory) RetrieveProvider(ctx context.Context, publicKey string, providerID string) (Provider, error) {
	d.mu.Lock()
	d.providerCalls++
	d.lastProvider = providerID
	d.mu.Unlock()
	if d.blockProvider {
		<-ctx.Done()
		return Provider{}, ctx.Err()
	}
	if d.providerErr != nil {
		return Provider{}, d.providerErr
	}
	return d.provider, nil
}

func (d *fakeDirectory) calls() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accountCalls, d.providerCalls
}

func testProof(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte("pk_test:sk_secret"))
}

func testToken(t *testing.T, codec *StateCodec, data map[string]any) string {
	t.Helper()
	state := codec.NewState()
	state.Extend(data)
	token, err := codec.Encode(state)
	if err != nil {
		t.Fatalf("encode test token: %v", err)
	}
	return token
}

func TestGuardRejectsMissingProofWithoutExternalCalls(t *testing.T) {
	directory := &fakeDirectory{}
	codec := NewStateCodec()
	guard := NewGuard(directory, codec, "")

	_, err := guard.Authorize(context.Background(), "", testToken(t, codec, map[string]any{"provider_id": "prov_1"}))
	if err == nil {
		t.Fatal("expected missing authorization error")
	}
	if got := ErrorTextCode(err); got != OnboardErrorMissingAuthorization {
		t.Fatalf("expected %s, got %s", OnboardErrorMissingAuthorization, got)
	}
	if accounts, providers := directory.calls(); accounts != 0 || providers != 0 {
		t.Fatalf("external calls made on missing proof: %d/%d", accounts, providers)
	}
}

func TestGuardRejectsMalformedProofWithoutExternalCalls(t *testing.T) {
	directory := &fakeDirectory{}
	codec := NewStateCodec()
	guard := NewGuard(directory, codec, "")

	_, err := guard.Authorize(context.Background(), "%%%", testToken(t, codec, map[string]any{"provider_id": "prov_1"}))
	if err == nil {
		t.Fatal("expected invalid credentials error")
	}
	if got := ErrorTextCode(err); got != OnboardErrorInvalidCredentials {
		t.Fatalf("expected %s, got %s", OnboardErrorInvalidCredentials, got)
	}
	if accounts, providers := directory.calls(); accounts != 0 || providers != 0 {
		t.Fatalf("external calls made on malformed proof: %d/%d", accounts, providers)
	}
}

func TestGuardRejectsMissingToken(t *testing.T) {
	directory := &fakeDirectory{}
	guard := NewGuard(directory, NewStateCodec(), "")

	_, err := guard.Authorize(context.Background(), testProof(t), "")
	if err == nil {
		t.Fatal("expected missing state error")
	}
	if got := ErrorTextCode(err); got != OnboardErrorMissingState {
		t.Fatalf("expected %s, got %s", OnboardErrorMissingState, got)
	}
	if accounts, providers := directory.calls(); accounts != 0 || providers != 0 {
		t.Fatalf("external calls made on missing token: %d/%d", accounts, providers)
	}
}

func TestGuardResolvesContextAndEnsuresRequestID(t *testing.T) {
	directory := &fakeDirectory{
		account:  Account{ID: "acc_1", LiveMode: true},
		provider: Provider{ID: "prov_1", LiveMode: true},
	}
	codec := NewStateCodec()
	guard := NewGuard(directory, codec, "")

	rc, err := guard.Authorize(context.Background(), testProof(t), testToken(t, codec, map[string]any{"provider_id": "prov_1"}))
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if rc.PublicKey != "pk_test" {
		t.Fatalf("public key material wrong: %q", rc.PublicKey)
	}
	if rc.Account.ID != "acc_1" || rc.Provider.ID != "prov_1" {
		t.Fatalf("context records wrong: %+v", rc)
	}
	if rc.State.RequestID() == "" {
		t.Fatal("request id not generated")
	}
	if accounts, providers := directory.calls(); accounts != 1 || providers != 1 {
		t.Fatalf("expected one call each, got %d/%d", accounts, providers)
	}
}

func TestGuardConfiguredProviderOverridesState(t *testing.T) {
	directory := &fakeDirectory{
		account:  Account{ID: "acc_1"},
		provider: Provider{ID: "prov_cfg"},
	}
	codec := NewStateCodec()
	guard := NewGuard(directory, codec, "prov_cfg")

	rc, err := guard.Authorize(context.Background(), testProof(t), testToken(t, codec, map[string]any{"provider_id": "prov_token"}))
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if rc.State.ProviderID() != "prov_cfg" {
		t.Fatalf("configured provider did not win: %q", rc.State.ProviderID())
	}
	directory.mu.Lock()
	lookedUp := directory.lastProvider
	directory.mu.Unlock()
	if lookedUp != "prov_cfg" {
		t.Fatalf("lookup used %q instead of the configured provider", lookedUp)
	}
}

func TestGuardFailsFastWhenOneLookupFails(t *testing.T) {
	directory := &fakeDirectory{
		accountErr:    fmt.Errorf("no such key"),
		blockProvider: true,
	}
	codec := NewStateCodec()
	guard := NewGuard(directory, codec, "")

	done := make(chan error, 1)
	go func() {
		_, err := guard.Authorize(context.Background(), testProof(t), testToken(t, codec, map[string]any{"provider_id": "prov_1"}))
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected invalid credentials error")
		}
		if got := ErrorTextCode(err); got != OnboardErrorInvalidCredentials {
			t.Fatalf("expected %s, got %s", OnboardErrorInvalidCredentials, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("guard waited on the second lookup instead of failing fast")
	}
}

func TestGuardRejectsLiveModeMismatch(t *testing.T) {
	directory := &fakeDirectory{
		account:  Account{ID: "acc_1", LiveMode: true},
		provider: Provider{ID: "prov_1", LiveMode: false},
	}
	codec := NewStateCodec()
	guard := NewGuard(directory, codec, "")

	_, err := guard.Authorize(context.Background(), testProof(t), testToken(t, codec, map[string]any{"provider_id": "prov_1"}))
	if err == nil {
		t.Fatal("expected invalid credentials on live mode mismatch")
	}
	if got := ErrorTextCode(err); got != OnboardErrorInvalidCredentials {
		t.Fatalf("expected %s, got %s", OnboardErrorInvalidCredentials, got)
	}
}

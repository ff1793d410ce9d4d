package inbound

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-onboard/core"
)

// Default page titles, overridable per router.
var defaultPageTitles = map[string]string{
	core.PageAuth:    "Connect your energy account",
	core.PageShare:   "Share your tariff",
	core.PageSuccess: "Tariff connected",
	core.PageCancel:  "Integration cancelled",
}

// buildView folds a flow outcome into the render model. Display settings
// prefer the provider's branding and fall back to the account's.
func buildView(page string, titles map[string]string, out core.FlowOutcome, errorMessage string) core.View {
	rc := out.Context

	display := rc.Provider.DisplaySettings
	if strings.TrimSpace(display.AccentColor) == "" {
		display.AccentColor = rc.Account.DisplaySettings.AccentColor
	}
	if display.Default == (core.LanguageAsset{}) {
		display.Default = rc.Account.DisplaySettings.Default
	}

	providerName := display.Default.DisplayName
	if providerName == "" {
		providerName = rc.Provider.DisplayName
	}

	view := core.View{
		Page:         page,
		Title:        titles[page],
		RedirectTo:   out.RedirectTo,
		ProviderName: providerName,
		Display:      display,
		SharedState:  out.Token,
		PublicState:  out.PublicToken,
		Error:        errorMessage,
	}
	if rc.State != nil {
		view.CallbackURL = rc.State.CallbackURL()
		view.HasAuthMetadata = rc.State.Authorised()
	}
	return view
}

// JSONRenderer emits the render model as a JSON document. Deployments that
// serve HTML plug in their own core.Renderer; flow semantics do not change.
type JSONRenderer struct{}

type jsonPage struct {
	Object       string `json:"object"`
	Page         string `json:"page,omitempty"`
	Title        string `json:"title,omitempty"`
	RedirectTo   string `json:"redirect_to,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	AccentColor  string `json:"accent_color,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	TermsURL     string `json:"terms_url,omitempty"`
	PrivacyURL   string `json:"privacy_url,omitempty"`
	State        string `json:"state,omitempty"`
	PublicState  string `json:"public_state,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (JSONRenderer) Render(_ context.Context, view core.View) ([]byte, string, error) {
	object := "flow_page"
	if view.RedirectTo != "" {
		object = "flow_redirect"
	}
	payload := jsonPage{
		Object:       object,
		Page:         view.Page,
		Title:        view.Title,
		RedirectTo:   view.RedirectTo,
		ProviderName: view.ProviderName,
		AccentColor:  view.Display.Accent(),
		LogoURL:      view.Display.Default.LogoURL,
		TermsURL:     view.Display.Default.TermsURL,
		PrivacyURL:   view.Display.Default.PrivacyURL,
		State:        view.SharedState,
		PublicState:  view.PublicState,
		CallbackURL:  view.CallbackURL,
		Error:        view.Error,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return body, "application/json; charset=utf-8", nil
}

var _ core.Renderer = JSONRenderer{}

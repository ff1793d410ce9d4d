package inbound

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-onboard/core"
)

// FlowService is the slice of the core service the router drives.
type FlowService interface {
	StartFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	AuthFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	AuthoriseFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	ShareFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	ConnectFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	CancelFlow(ctx context.Context, req core.FlowRequest) (core.FlowOutcome, error)
	TariffPlan(ctx context.Context, input core.TariffPlanInput) (core.TariffDraft, error)
}

const guidanceMessage = "Missing state. Use a POST request with state and auth params."

type Router struct {
	service  FlowService
	renderer core.Renderer
	logger   core.Logger
	titles   map[string]string
	mux      *http.ServeMux
}

type RouterOption func(*Router)

func WithRenderer(renderer core.Renderer) RouterOption {
	return func(r *Router) {
		if renderer != nil {
			r.renderer = renderer
		}
	}
}

func WithRouterLogger(logger core.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithPageTitle(page string, title string) RouterOption {
	return func(r *Router) {
		r.titles[page] = title
	}
}

func NewRouter(service FlowService, opts ...RouterOption) (*Router, error) {
	if service == nil {
		return nil, inboundError(
			"inbound: a flow service is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			core.OnboardErrorInternal,
			nil,
		)
	}
	router := &Router{
		service:  service,
		renderer: JSONRenderer{},
		logger:   glog.Ensure(nil),
		titles:   map[string]string{},
	}
	for page, title := range defaultPageTitles {
		router.titles[page] = title
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(router)
	}
	router.mux = router.buildMux()
	return router, nil
}

func (rt *Router) buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.handleGuidance)
	mux.HandleFunc("POST /{$}", rt.handleStart)
	mux.HandleFunc("POST /auth", rt.handleAuth)
	mux.HandleFunc("POST /auth/capture", rt.handleAuthCapture)
	mux.HandleFunc("GET /share", rt.handleShare)
	mux.HandleFunc("POST /share", rt.handleShare)
	mux.HandleFunc("POST /share/capture", rt.handleShareCapture)
	mux.HandleFunc("POST /cancel", rt.handleCancel)
	mux.HandleFunc("POST /api/tariff_plan", rt.handleTariffPlan)
	mux.HandleFunc("/", rt.handleUnsupported)
	return mux
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

func (rt *Router) Handler() http.Handler {
	return rt
}

// flowRequest extracts the credential proof, state token, and remaining body
// fields. The proof rides in the body's auth field or the Authorization
// header; the token in the body's state field or the query string.
func flowRequest(r *http.Request) core.FlowRequest {
	input := parseBody(r)

	authorization, _ := input["auth"].(string)
	if strings.TrimSpace(authorization) == "" {
		authorization = r.Header.Get("Authorization")
	}
	token, _ := input["state"].(string)
	if strings.TrimSpace(token) == "" {
		token = r.URL.Query().Get("state")
	}

	return core.FlowRequest{
		Authorization: strings.TrimSpace(authorization),
		Token:         strings.TrimSpace(token),
		Input:         input,
	}
}

func parseBody(r *http.Request) map[string]any {
	input := map[string]any{}
	if r.Body == nil {
		return input
	}
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/json" {
		decoded := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&decoded); err == nil {
			return decoded
		}
		return input
	}
	if err := r.ParseForm(); err != nil {
		return input
	}
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		input[key] = values[0]
	}
	return input
}

func (rt *Router) handleGuidance(w http.ResponseWriter, r *http.Request) {
	rt.renderError(w, r, http.StatusBadRequest, guidanceMessage)
}

func (rt *Router) handleStart(w http.ResponseWriter, r *http.Request) {
	req := flowRequest(r)
	out, err := rt.service.StartFlow(r.Context(), req)
	if err != nil {
		rt.renderFailure(w, r, err, "", "")
		return
	}
	rt.renderOutcome(w, r, out, "")
}

func (rt *Router) handleAuth(w http.ResponseWriter, r *http.Request) {
	req := flowRequest(r)
	out, err := rt.service.AuthFlow(r.Context(), req)
	if err != nil {
		rt.renderFailure(w, r, err, "", "")
		return
	}
	rt.renderOutcome(w, r, out, "")
}

func (rt *Router) handleAuthCapture(w http.ResponseWriter, r *http.Request) {
	req := flowRequest(r)
	out, err := rt.service.AuthoriseFlow(r.Context(), req)
	if err != nil {
		// The state did not change; the inbound token stays valid for the
		// retry page.
		rt.renderFailure(w, r, err, core.PageAuth, req.Token)
		return
	}
	rt.renderOutcome(w, r, out, "")
}

func (rt *Router) handleShare(w http.ResponseWriter, r *http.Request) {
	req := flowRequest(r)
	out, err := rt.service.ShareFlow(r.Context(), req)
	if err != nil {
		rt.renderFailure(w, r, err, "", "")
		return
	}
	rt.renderOutcome(w, r, out, "")
}

func (rt *Router) handleShareCapture(w http.ResponseWriter, r *http.Request) {
	req := flowRequest(r)
	out, err := rt.service.ConnectFlow(r.Context(), req)
	if err != nil {
		rt.renderFailure(w, r, err, "", "")
		return
	}
	rt.renderOutcome(w, r, out, "")
}

func (rt *Router) handleCancel(w http.ResponseWriter, r *http.Request) {
	req := flowRequest(r)
	out, err := rt.service.CancelFlow(r.Context(), req)
	if err != nil {
		rt.renderFailure(w, r, err, "", "")
		return
	}
	rt.renderOutcome(w, r, out, "User rejects integration")
}

func (rt *Router) handleUnsupported(w http.ResponseWriter, r *http.Request) {
	err := unsupportedRouteError(r.Method, r.URL.Path)
	rt.logger.Error("unsupported route", "method", r.Method, "path", r.URL.Path)
	rt.renderError(w, r, core.ErrorHTTPStatus(err), "Unsupported route")
}

func (rt *Router) handleTariffPlan(w http.ResponseWriter, r *http.Request) {
	var input core.TariffPlanInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeMachineError(w, "api_error", "Invalid request body", http.StatusBadRequest)
		return
	}

	draft, err := rt.service.TariffPlan(r.Context(), input)
	if err != nil {
		rt.logger.Error("tariff plan failed", "error", err.Error())
		errorType, status := machineErrorType(err)
		message := callerMessage(err)
		writeMachineError(w, errorType, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(draft)
}

func (rt *Router) renderOutcome(w http.ResponseWriter, r *http.Request, out core.FlowOutcome, errorMessage string) {
	page := out.Page
	view := buildView(page, rt.titles, out, errorMessage)
	rt.write(w, r, http.StatusOK, view)
}

// renderFailure renders a bounded error response. Authorisation-step
// rejections re-render the retry page with an inline error; everything else
// gets the generic error view without a token.
func (rt *Router) renderFailure(w http.ResponseWriter, r *http.Request, err error, retryPage string, retryToken string) {
	rt.logger.Error("flow operation failed",
		"path", r.URL.Path,
		"text_code", core.ErrorTextCode(err),
		"error", err.Error(),
	)

	if retryPage != "" && core.ErrorTextCode(err) == core.OnboardErrorAuthorisationFailed {
		view := core.View{
			Page:        retryPage,
			Title:       rt.titles[retryPage],
			SharedState: retryToken,
			Error:       callerMessage(err),
		}
		rt.write(w, r, http.StatusOK, view)
		return
	}

	rt.renderError(w, r, core.ErrorHTTPStatus(err), callerMessage(err))
}

func (rt *Router) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	view := core.View{Page: "error", Error: message}
	rt.write(w, r, status, view)
}

func (rt *Router) write(w http.ResponseWriter, r *http.Request, status int, view core.View) {
	body, contentType, err := rt.renderer.Render(r.Context(), view)
	if err != nil {
		rt.logger.Error("render failed", "error", err.Error())
		writeMachineError(w, "server_error", "An unexpected error occurred", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)
}

func writeMachineError(w http.ResponseWriter, errorType string, message string, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"object":  "error",
		"type":    errorType,
		"message": message,
	})
}

// callerMessage picks what a failure is allowed to show the caller. Raw
// validation and upstream detail stays in the logs.
func callerMessage(err error) string {
	switch core.ErrorTextCode(err) {
	case core.OnboardErrorMissingAuthorization:
		return "Authorization is required"
	case core.OnboardErrorMissingState:
		return guidanceMessage
	case core.OnboardErrorInvalidState:
		return "Invalid state"
	case core.OnboardErrorInvalidCredentials:
		return "Invalid credentials"
	case core.OnboardErrorAuthorisationFailed:
		return errorMessageOf(err)
	case core.OnboardErrorBadInput:
		return errorMessageOf(err)
	case core.OnboardErrorPipelineStepFailed:
		return "Unable to connect your tariff"
	default:
		return "An unexpected error occurred"
	}
}

func errorMessageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

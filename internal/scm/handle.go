package scm

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/drewdunne/scmpoll/internal/apperr"
)

// Request names sent by the orchestrator.
const (
	RequestSCMConfiguration         = "scm-configuration"
	RequestSCMView                  = "scm-view"
	RequestValidateSCMConfiguration = "validate-scm-configuration"
	RequestCheckSCMConnection       = "check-scm-connection"
	RequestLatestRevision           = "latest-revision"
	RequestLatestRevisionsSince     = "latest-revisions-since"
	RequestCheckout                 = "checkout"
	RequestPluginConfiguration      = "go.plugin-settings.get-configuration"
	RequestPluginView               = "go.plugin-settings.get-view"
	RequestValidatePluginConfig     = "go.plugin-settings.validate-configuration"
)

// Response is a rendered plugin response. A nil Body is sent as no content.
type Response struct {
	Code int
	Body []byte
}

// Handle dispatches a request by name and renders the result. Unknown
// requests get 404; failed operations get 500 with a scrubbed message.
func (p *Plugin) Handle(ctx context.Context, name string, body []byte) Response {
	switch name {
	case RequestSCMConfiguration:
		return render(http.StatusOK, p.Configuration())

	case RequestSCMView:
		view, err := RenderView(p.provider.DisplayName(), p.Configuration())
		if err != nil {
			return p.renderError(err)
		}
		return render(http.StatusOK, view)

	case RequestValidateSCMConfiguration:
		var req ConfigurationRequest
		if err := decode(body, &req); err != nil {
			return p.renderError(err)
		}
		return render(http.StatusOK, p.ValidateConfiguration(req.Configuration))

	case RequestCheckSCMConnection:
		var req ConfigurationRequest
		if err := decode(body, &req); err != nil {
			return p.renderError(err)
		}
		return render(http.StatusOK, p.CheckConnection(ctx, req.Configuration))

	case RequestLatestRevision:
		var req LatestRevisionRequest
		if err := decode(body, &req); err != nil {
			return p.renderError(err)
		}
		resp, err := p.LatestRevision(ctx, &req)
		if err != nil {
			return p.renderError(err)
		}
		return render(http.StatusOK, resp)

	case RequestLatestRevisionsSince:
		var req LatestRevisionsSinceRequest
		if err := decode(body, &req); err != nil {
			return p.renderError(err)
		}
		resp, err := p.LatestRevisionsSince(ctx, &req)
		if err != nil {
			return p.renderError(err)
		}
		return render(http.StatusOK, resp)

	case RequestCheckout:
		var req CheckoutRequest
		if err := decode(body, &req); err != nil {
			return p.renderError(err)
		}
		resp, err := p.Checkout(ctx, &req)
		if err != nil {
			return p.renderError(err)
		}
		return render(http.StatusOK, resp)

	case RequestPluginConfiguration:
		return render(http.StatusOK, map[string]interface{}{})

	case RequestValidatePluginConfig:
		return render(http.StatusOK, []FieldError{})

	default:
		// Includes the plugin settings view: there are no plugin-level
		// settings to show.
		return Response{Code: http.StatusNotFound}
	}
}

func decode(body []byte, v interface{}) error {
	if len(body) == 0 {
		return apperr.InvalidRequest("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInvalidRequest, "malformed request body")
	}
	return nil
}

func render(code int, v interface{}) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{Code: http.StatusInternalServerError, Body: mustString(err.Error())}
	}
	return Response{Code: code, Body: body}
}

// renderError sends the error message as a JSON string. Operation errors are
// already scrubbed of credentials.
func (p *Plugin) renderError(err error) Response {
	p.log.Debugf("request failed with %s", apperr.CodeOf(err))
	return Response{Code: http.StatusInternalServerError, Body: mustString(err.Error())}
}

func mustString(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

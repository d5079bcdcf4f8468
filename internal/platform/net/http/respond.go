// Package http hosts the status API plumbing: chi adapter, server and JSON envelope
package http

import (
	"cmp"
	"encoding/json"
	stdhttp "net/http"

	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	pnet "contractscout/internal/platform/net"
)

// Envelope is the response body of every JSON endpoint; Data on success, Code and Error on failure
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

func envelope(r *stdhttp.Request, status int) Envelope {
	return Envelope{StatusCode: status, Status: stdhttp.StatusText(status), RequestID: pnet.RequestID(r.Context())}
}

// JSON writes v with the given status. The header is already sent when encoding
// fails, so the failure is only logged
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Named("http").Warn().Err(err).Int("status", status).Msg("response encode failed")
	}
}

// RespondError writes err as an envelope with its mapped HTTP status and public message
func RespondError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	status := perr.HTTPStatus(err)
	wire := perr.WireFrom(err)
	env := envelope(r, status)
	env.Code, env.Error = wire.Code, wire.Message
	JSON(w, status, env)
}

// Response is what return-style handlers produce; an error Body is written via RespondError
type Response struct {
	Status int
	Body   any
}

// Handle adapts a Response-returning handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		resp := h(r)
		if err, ok := resp.Body.(error); ok && err != nil {
			RespondError(w, r, err)
			return
		}
		status := cmp.Or(resp.Status, stdhttp.StatusOK)
		env := envelope(r, status)
		env.Data = resp.Body
		JSON(w, status, env)
	}
}

// OK wraps data in a 200
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Error wraps err; the status comes from its code
func Error(err error) Response { return Response{Body: err} }

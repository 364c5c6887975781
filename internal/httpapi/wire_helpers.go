package httpapi

import (
	"io"
	"net/http"

	"energyexchange/internal/apperr"
	"energyexchange/internal/wire"
)

func readObject(r *http.Request) (wire.Object, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "failed to read request body")
	}
	if len(body) == 0 {
		return wire.Object{}, nil
	}
	obj, _, err := wire.Decode(body)
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "malformed framed request body")
	}
	return obj, nil
}

// writeObject encodes obj under the server's default output version
// (v2, per spec §6) and writes it with the given status code.
func writeObject(w http.ResponseWriter, status int, obj wire.Object) {
	buf, err := wire.Encode(obj, wire.Version2)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(status)
	w.Write(buf)
}

func writeEmpty(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// writeError translates an error into its wire status code and a
// small framed message body (spec §7).
func writeError(w http.ResponseWriter, err error) {
	kind, message := classify(err)
	writeObject(w, statusFor(kind), wire.Object{
		{Name: "error", Value: wire.Str(string(kind))},
		{Name: "message", Value: wire.Str(message)},
	})
}

func classify(err error) (apperr.Kind, string) {
	if e, ok := err.(*apperr.Error); ok {
		return e.Kind, e.Message
	}
	return apperr.InvalidInput, err.Error()
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.InsufficientCollateral:
		return http.StatusPaymentRequired
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.SelfMatch:
		return http.StatusPreconditionFailed
	case apperr.TooEarly:
		return http.StatusTooEarly
	case apperr.TooLate:
		return http.StatusUnavailableForLegalReasons
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

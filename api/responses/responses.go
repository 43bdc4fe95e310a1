// Package responses renders handler results. Catalog, auth and order routes
// use status codes with {data} or {error}; cart and checkout routes always
// answer 200 with a {success, data, error} result.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ownMessage lists codes whose service message is safe to show clients.
// Everything else is replaced by the code's public message.
var ownMessage = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:   true,
	pkgerrors.CodeUnauthorized: true,
	pkgerrors.CodeForbidden:    true,
	pkgerrors.CodeNotFound:     true,
	pkgerrors.CodeConflict:     true,
	pkgerrors.CodeIdempotency:  true,
	pkgerrors.CodeRateLimit:    true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	apiErr, status := render(ctx, logg, err)
	writeJSON(w, status, types.ErrorEnvelope{Error: apiErr})
}

func WriteResult(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, data any, err error) {
	result := types.ResultEnvelope{Success: err == nil, Data: data}
	if err != nil {
		apiErr, _ := render(ctx, logg, err)
		result.Data = nil
		result.Error = &apiErr
	}
	writeJSON(w, http.StatusOK, result)
}

// render logs err and converts it to its public form and HTTP status.
func render(ctx context.Context, logg *logger.Logger, err error) (types.APIError, int) {
	if err == nil {
		err = errors.New("error response without an error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	out := types.APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if ownMessage[typed.Code()] && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		if details, ok := typed.Details().(map[string]any); ok && details["field"] != nil {
			fields["field"] = details["field"]
		}
		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}
	return out, meta.HTTPStatus
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header is already out, so an encode failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(payload)
}

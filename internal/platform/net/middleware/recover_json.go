package middleware

import (
	stdhttp "net/http"
	"runtime/debug"

	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	phttp "contractscout/internal/platform/net/http"
)

// RecoverJSON converts handler panics into a JSON 500 envelope. http.ErrAbortHandler passes through
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == stdhttp.ErrAbortHandler {
					// net/http aborts the response silently for this sentinel
					panic(v)
				}
				logger.Named("http").Error().
					Interface("panic", v).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				phttp.RespondError(w, r, perr.New(perr.ErrorCodePanic, "panic recovered"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

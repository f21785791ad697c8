package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestLogger logs one line per request and attaches a request scoped
// logger to the request context, retrievable with zerolog.Ctx.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()

            reqLog := log.With().
                Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
                Logger()
            c.SetRequest(req.WithContext(reqLog.WithContext(req.Context())))

            err := next(c)
            if err != nil {
                // let the HTTP error handler write the response first so
                // the logged status is the one the client sees
                c.Error(err)
            }

            status := c.Response().Status
            var ev *zerolog.Event
            switch {
            case status >= 500:
                ev = reqLog.Error().Err(err)
            case status >= 400:
                ev = reqLog.Warn()
            default:
                ev = reqLog.Info()
            }
            if uid, ok := UserID(c); ok {
                ev = ev.Uint64("user_id", uid)
            }
            ev.Str("method", req.Method).
                Str("path", req.URL.Path).
                Int("status", status).
                Dur("latency", time.Since(start)).
                Str("ip", c.RealIP()).
                Msg("request")
            return nil
        }
    }
}

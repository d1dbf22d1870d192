package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// Probe endpoints are scraped constantly and would drown real traffic in
// the request log.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogging logs HTTP requests.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if quietPaths[req.URL.Path] {
				return err
			}

			log.Printf("[%s] %s %s - %d (%s)",
				req.Method,
				req.RequestURI,
				req.RemoteAddr,
				res.Status,
				time.Since(start),
			)

			return err
		}
	}
}

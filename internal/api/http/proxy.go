package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
)

// NewUpstreamHandler forwards the request, path and query intact, to the
// given upstream base URL. Routing only; all authentication has already
// happened upstream of this handler in the filter.
func NewUpstreamHandler(baseURL string) fiber.Handler {
	base := strings.TrimSuffix(baseURL, "/")
	return func(c *fiber.Ctx) error {
		return proxy.Do(c, base+c.OriginalURL())
	}
}

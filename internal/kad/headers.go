package kad

import (
	"net/http"

	"github.com/google/uuid"

	"kadrisk/internal/constants"
)

// setHeaders makes every request look like part of one browser session on
// the site: same-origin referer, XHR marker, a stable session id and a
// fresh request id.
func (c *Client) setHeaders(req *http.Request, kind string) {
	h := req.Header
	h.Set("User-Agent", c.userAgent)
	h.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.6,en;q=0.4")
	h.Set("Referer", c.baseURL+"/")
	h.Set("X-Session-Id", c.sessionID)
	h.Set("X-Request-Id", uuid.NewString())

	switch kind {
	case constants.KindSearch:
		h.Set("Accept", "application/json, text/javascript, */*")
		h.Set("Content-Type", "application/json")
		h.Set("Origin", c.baseURL)
		h.Set("X-Requested-With", "XMLHttpRequest")
		h.Set("X-Date-Format", "iso")
	case constants.KindPDF:
		h.Set("Accept", "application/pdf,*/*;q=0.8")
	default:
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
}

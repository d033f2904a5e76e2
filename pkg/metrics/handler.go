package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default prometheus registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

package httputil

import (
	"net/http"
	"time"
)

// Clients bundles the two plain http clients the non-colly paths use.
type Clients struct {
	Media *http.Client // image/floorplan downloads, generous timeout
	API   *http.Client // portal JSON endpoints
}

func NewClients() *Clients {
	return &Clients{
		Media: &http.Client{
			Timeout: 60 * time.Second,
		},
		API: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

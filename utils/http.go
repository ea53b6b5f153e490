// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the TMDB gateway and the OAuth exchange adapter.
var HTTPClient = &http.Client{
	Timeout: 10 * time.Second,
}

package providers

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewRestyClient builds the shared client for the JSON endpoints that need
// no circuit breaker (radar manifest, IP geolocation).
func NewRestyClient(timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeader("Accept", "application/json")
	return client
}

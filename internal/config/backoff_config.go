package config

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PingBackoff returns the retry policy used when testing a connection.
// The policy never runs longer than the pool connect timeout. In test
// environments the intervals collapse so failures surface quickly.
func (c Config) PingBackoff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	if c.IsTest() {
		expo.InitialInterval = 10 * time.Millisecond
		expo.MaxInterval = 50 * time.Millisecond
		expo.Multiplier = 2.0
		expo.MaxElapsedTime = 200 * time.Millisecond
		return expo
	}
	expo.InitialInterval = c.PingBackoffInitialInterval
	expo.MaxInterval = c.PingBackoffMaxInterval
	expo.Multiplier = c.PingBackoffMultiplier
	expo.MaxElapsedTime = c.PoolConnectTimeout
	return expo
}

package prover

import (
	"crypto/rand"
	"math"
	"time"
)

const (
	initialRetryDelay = 100 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// retryDelay implements exponential backoff with crypto-secure jitter
func retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return initialRetryDelay
	}

	// Exponential backoff: 2^(attempt-1) * initialDelay
	delay := time.Duration(float64(initialRetryDelay) * math.Pow(2, float64(attempt-1)))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	return delay + cryptoJitter(float64(delay)*0.1)
}

// cryptoJitter generates cryptographically secure random jitter
func cryptoJitter(maxJitter float64) time.Duration {
	if maxJitter <= 0 {
		return 0
	}

	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fall back to zero jitter if crypto/rand fails
		return 0
	}

	var n uint64
	for i, b := range bytes {
		n |= uint64(b) << (8 * i)
	}

	ratio := float64(n) / float64(^uint64(0))
	return time.Duration(ratio * maxJitter)
}

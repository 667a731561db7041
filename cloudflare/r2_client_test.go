package cloudflare

import (
	"context"
	"testing"

	a "mediband/api/aws"

	"github.com/stretchr/testify/assert"
)

func TestR2Endpoint(t *testing.T) {
	assert.Equal(t, "https://abc123.r2.cloudflarestorage.com", R2Endpoint("abc123"))
}

func TestNewR2NeedsAccount(t *testing.T) {
	_, err := NewR2(context.Background(), "", a.Options{Bucket: "b"})
	assert.Error(t, err)
}

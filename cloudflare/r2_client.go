// Package cloudflare provides clients for Cloudflare services.
package cloudflare

import (
	"context"
	"fmt"

	a "mediband/api/aws"
)

// NewR2 connects to a Cloudflare R2 bucket through its S3 compatible API.
// R2 has a single "auto" region and an account scoped endpoint.
func NewR2(ctx context.Context, accountID string, o a.Options) (*a.S3Client, error) {
	if accountID == "" {
		return nil, fmt.Errorf("no cloudflare account id provided")
	}

	o.Endpoint = R2Endpoint(accountID)
	o.Region = "auto"

	return a.NewS3(ctx, o)
}

func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

package interfaces

import (
	"context"

	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=fetcher.go -destination=mock/fetcher.go

// Fetcher performs network requests on behalf of the cache layer
type Fetcher interface {
	// Fetch returns the buffered network response. Any failure to obtain a
	// response is reported as an error wrapping network.ErrNetwork.
	Fetch(ctx context.Context, req *models.Request) (*models.Response, error)
}

// ConnectivityObserver receives connectivity transitions
type ConnectivityObserver interface {
	SetOnline(online bool)
}

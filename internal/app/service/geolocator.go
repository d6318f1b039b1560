package service

import (
	"context"

	"github.com/sifan077/FlexQR/internal/app/model"
)

// Geolocator resolves a client IP to a best-effort location.
type Geolocator interface {
	Locate(ctx context.Context, ip string) model.Geolocation
}

// UnknownGeolocator reports every location as unknown.
type UnknownGeolocator struct{}

func (UnknownGeolocator) Locate(context.Context, string) model.Geolocation {
	return model.UnknownGeolocation
}

func normalizeGeolocation(g model.Geolocation) model.Geolocation {
	return model.Geolocation{
		Country: orUnknown(g.Country),
		Region:  orUnknown(g.Region),
		City:    orUnknown(g.City),
	}
}

// Package geo stores named points in a Redis geo index and answers radius
// queries against it.
package geo

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
)

// DefaultKey is the geo index used when no key is configured.
const DefaultKey = "locations"

// DefaultUnit is the distance unit used when none is given.
const DefaultUnit = "km"

var units = map[string]struct{}{"m": {}, "km": {}, "mi": {}, "ft": {}}

// Location is a named point. Distance is set on query results and is
// expressed in the unit of the query.
type Location struct {
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Distance  float64 `json:"distance"`
}

// Index is a geo index backed by a Redis sorted set.
type Index struct {
	client *redis.Client
	key    string
}

// New returns an Index stored under key. An empty key selects DefaultKey.
func New(client *redis.Client, key string) *Index {
	if key == "" {
		key = DefaultKey
	}
	return &Index{client: client, key: key}
}

// Add stores or moves the point called name.
func (i *Index) Add(ctx context.Context, name string, longitude, latitude float64) error {
	if name == "" {
		return fmt.Errorf("%w: location name is empty", warperrors.ErrInvalidArgument)
	}
	if longitude < -180 || longitude > 180 || latitude < -85.05112878 || latitude > 85.05112878 {
		return fmt.Errorf("%w: coordinates out of range", warperrors.ErrInvalidArgument)
	}
	return i.client.GeoAdd(ctx, i.key, &redis.GeoLocation{
		Name:      name,
		Longitude: longitude,
		Latitude:  latitude,
	}).Err()
}

// Nearby returns the points within radius of the given coordinates, closest
// first. An empty unit selects DefaultUnit.
func (i *Index) Nearby(ctx context.Context, longitude, latitude, radius float64, unit string) ([]Location, error) {
	if unit == "" {
		unit = DefaultUnit
	}
	if _, ok := units[unit]; !ok {
		return nil, fmt.Errorf("%w: unknown unit %q", warperrors.ErrInvalidArgument, unit)
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius must not be negative", warperrors.ErrInvalidArgument)
	}
	res, err := i.client.GeoRadius(ctx, i.key, longitude, latitude, &redis.GeoRadiusQuery{
		Radius:    radius,
		Unit:      unit,
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(res))
	for _, r := range res {
		out = append(out, Location{
			Name:      r.Name,
			Longitude: r.Longitude,
			Latitude:  r.Latitude,
			Distance:  r.Dist,
		})
	}
	return out, nil
}

// Package places proxies the Google Places v1 API for study space search.
// Response shapes are reduced to the handful of fields the clients need.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"
)

const (
	searchNearbyURL = "https://places.googleapis.com/v1/places:searchNearby"
	placeDetailURL  = "https://places.googleapis.com/v1/places/"

	nearbyFieldMask = "places.location,places.id,places.displayName,places.types"
	detailFieldMask = "id,displayName,formattedAddress,location,regularOpeningHours,types"
)

// DefaultTypes are searched when the caller does not restrict place types.
var DefaultTypes = []string{"cafe", "library"}

// Place is a search result enriched with the distance from the query point.
type Place struct {
	SpaceID  string  `json:"space_id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Type     string  `json:"type,omitempty"`
}

// Detail is the reduced detail view of a single place.
type Detail struct {
	SpaceID      string   `json:"space_id"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Types        []string `json:"types,omitempty"`
	OpeningHours []string `json:"opening_hours,omitempty"`
}

// Client calls the Places API with a per-project key.
type Client struct {
	apiKey   string
	language string
	region   string
	http     *http.Client
}

func NewClient(apiKey, language, region string) *Client {
	return &Client{
		apiKey:   apiKey,
		language: language,
		region:   region,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type nearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	LanguageCode        string   `json:"languageCode"`
	RegionCode          string   `json:"regionCode"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type rawPlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Types               []string `json:"types"`
	RegularOpeningHours struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
}

// SearchNearby returns places around (lat, lng) within radius meters,
// sorted by distance.
func (c *Client) SearchNearby(ctx context.Context, lat, lng, radius float64, types []string) ([]Place, error) {
	if len(types) == 0 {
		types = DefaultTypes
	}

	body := nearbyRequest{
		IncludedTypes:  types,
		LanguageCode:   c.language,
		RegionCode:     c.region,
		MaxResultCount: 10,
	}
	body.LocationRestriction.Circle.Center.Latitude = lat
	body.LocationRestriction.Circle.Center.Longitude = lng
	body.LocationRestriction.Circle.Radius = radius

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchNearbyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", nearbyFieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places search failed: status %d", resp.StatusCode)
	}

	var decoded struct {
		Places []rawPlace `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	results := make([]Place, 0, len(decoded.Places))
	for _, p := range decoded.Places {
		place := Place{
			SpaceID:  p.ID,
			Name:     p.DisplayName.Text,
			Distance: distanceMeters(lat, lng, p.Location.Latitude, p.Location.Longitude),
		}
		for _, t := range types {
			if contains(p.Types, t) {
				place.Type = t
				break
			}
		}
		results = append(results, place)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results, nil
}

// GetDetail fetches the reduced detail view for one place id.
func (c *Client) GetDetail(ctx context.Context, spaceID string) (*Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, placeDetailURL+spaceID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", detailFieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place detail failed: status %d", resp.StatusCode)
	}

	var p rawPlace
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &Detail{
		SpaceID:      p.ID,
		Name:         p.DisplayName.Text,
		Address:      p.FormattedAddress,
		Latitude:     p.Location.Latitude,
		Longitude:    p.Location.Longitude,
		Types:        p.Types,
		OpeningHours: p.RegularOpeningHours.WeekdayDescriptions,
	}, nil
}

const earthRadiusMeters = 6371000

// distanceMeters is the haversine distance between two coordinates.
func distanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

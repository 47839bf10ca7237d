package weather

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const mapPadding = 0.1

// Spot is a suggested photography location type near a searched city.
type Spot struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	SearchURL   string `json:"searchUrl,omitempty"`
}

var defaultSpots = []Spot{
	{Name: "City Center", Type: "Urban", Description: "Architectural photography opportunities"},
	{Name: "Waterfront", Type: "Natural", Description: "Reflections and cityscape views"},
	{Name: "Historic District", Type: "Urban", Description: "Character and history"},
	{Name: "Park", Type: "Natural", Description: "Nature and wildlife photography"},
}

// Tips are shown with every map view.
var Tips = []string{
	"Arrive 30 minutes before golden hour to scout locations",
	"Use a tripod for stability during low light conditions",
	"Consider using ND filters for longer exposures",
}

// MapView is everything the map page shows for one record.
type MapView struct {
	City        string       `json:"city"`
	Country     string       `json:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Label       string       `json:"coordinatesLabel"`
	EmbedURL    string       `json:"embedUrl,omitempty"`
	GoldenHours *GoldenHours `json:"goldenHours,omitempty"`
	Spots       []Spot       `json:"spots"`
	Tips        []string     `json:"tips"`
}

// NewMapView builds the map page for rec. Without coordinates there is no
// embed URL and no golden hours.
func NewMapView(rec Record, report Report) MapView {
	v := MapView{
		City:        rec.City,
		Country:     rec.Country,
		Coordinates: rec.Coordinates,
		Label:       CoordinatesLabel(rec.Coordinates),
		GoldenHours: report.GoldenHours,
		Spots:       Spots(rec.City),
		Tips:        Tips,
	}
	if rec.Coordinates != nil {
		v.EmbedURL = EmbedURL(*rec.Coordinates)
	}
	return v
}

// EmbedURL returns an OpenStreetMap embed URL centred on c with a marker.
func EmbedURL(c Coordinates) string {
	bbox := strings.Join([]string{
		formatCoord(c.Lon - mapPadding),
		formatCoord(c.Lat - mapPadding),
		formatCoord(c.Lon + mapPadding),
		formatCoord(c.Lat + mapPadding),
	}, "%2C")
	marker := formatCoord(c.Lat) + "%2C" + formatCoord(c.Lon)
	return "https://www.openstreetmap.org/export/embed.html?bbox=" + bbox + "&layer=mapnik&marker=" + marker
}

// CoordinatesLabel renders c with four decimals, zeros when unknown.
func CoordinatesLabel(c *Coordinates) string {
	if c == nil {
		return "0.0000°N, 0.0000°E"
	}
	return fmt.Sprintf("%.4f°N, %.4f°E", c.Lat, c.Lon)
}

// Spots returns the suggested spots with a Google Maps search link for city.
func Spots(city string) []Spot {
	out := make([]Spot, len(defaultSpots))
	for i, s := range defaultSpots {
		if city != "" {
			s.SearchURL = "https://www.google.com/maps/search/?api=1&query=" + encodeComponent(city+" "+s.Name)
		}
		out[i] = s
	}
	return out
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// encodeComponent escapes like JavaScript's encodeURIComponent (spaces as %20).
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

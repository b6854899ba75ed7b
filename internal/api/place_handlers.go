package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultSearchRadius = 1000

func parseCoord(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a number"})
		return 0, false
	}
	return v, true
}

func (s *Server) handleSpacesNear(c *gin.Context) {
	lat, ok := parseCoord(c, "lat")
	if !ok {
		return
	}
	lng, ok := parseCoord(c, "lng")
	if !ok {
		return
	}

	radius := float64(defaultSearchRadius)
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be a positive number"})
			return
		}
		radius = parsed
	}

	var types []string
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				types = append(types, trimmed)
			}
		}
	}

	results, err := s.places.SearchNearby(c.Request.Context(), lat, lng, radius, types)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spaces": results})
}

func (s *Server) handleSpaceDetail(c *gin.Context) {
	spaceID := c.Query("space_id")
	if spaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space_id is required"})
		return
	}

	detail, err := s.places.GetDetail(c.Request.Context(), spaceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"space": detail})
}

package handlers

import (
	"net/http"

	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/gin-gonic/gin"
)

// Health reports liveness and, when a tier is given, its cache state.
func Health(tier *cache.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if tier != nil {
			cacheInfo := gin.H{"state": tier.State(), "ttl": tier.TTL().String()}
			if e := tier.Entry(); e != nil {
				cacheInfo["items"] = len(e.Items)
				cacheInfo["fetchedAt"] = e.FetchedAt
			}
			if err := tier.LastError(); err != nil {
				cacheInfo["lastError"] = err.Error()
			}
			body["cache"] = cacheInfo
		}
		c.JSON(http.StatusOK, body)
	}
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/madickediagne/LOGISEN/internal/config"
)

// SetupServiceRouter configures the internal service Gin engine. It exposes
// the shutdown hook and, under MOCK_SERVICES, lets integration tests fetch
// the mock emails the Redis sender stored.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			var emailJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

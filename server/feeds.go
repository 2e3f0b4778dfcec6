package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/server/middlewares"
	"github.com/hoshi-social/feedstream/server/query"
	"github.com/hoshi-social/feedstream/store"
	Logger "github.com/hoshi-social/feedstream/utils/log"
)

// FeedServer serves the read side of the feed engine and accepts content
// events for asynchronous fan-out.
type FeedServer struct {
	Query *query.FeedQueryService
	Store *store.ActivityStore
	Jobs  queue.Enqueuer
}

func NewFeedServer(querySvc *query.FeedQueryService, activityStore *store.ActivityStore, jobs queue.Enqueuer) *FeedServer {
	return &FeedServer{
		Query: querySvc,
		Store: activityStore,
		Jobs:  jobs,
	}
}

// NewRouter wires the HTTP surface. The include/fields query params are
// accepted and passed through untouched; response shaping belongs to the
// serializer in front of this service.
func NewRouter(fs *FeedServer, db *gorm.DB) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(middlewares.Identify(db))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, "pong")
	})

	feeds := router.Group("/feeds")
	feeds.GET("/:group/:id", fs.Show)
	feeds.POST("/:group/:id/_read", fs.MarkRead)
	feeds.POST("/:group/:id/_seen", fs.MarkSeen)

	router.POST("/events", fs.IngestEvent)

	return router
}

func serializeError(status int, detail string) gin.H {
	return gin.H{
		"errors": []gin.H{
			{
				"status": status,
				"detail": detail,
			},
		},
	}
}

func denyFeedAccess(c *gin.Context) {
	c.JSON(http.StatusForbidden, serializeError(http.StatusForbidden, "Not allowed to access that feed"))
}

// Show lists one page of a feed, newest first.
func (fs *FeedServer) Show(c *gin.Context) {
	caller := middlewares.CallerFromContext(c)
	refs, err := fs.Query.ResolveFeed(c.Request.Context(), c.Param("group"), c.Param("id"), caller)
	if err != nil {
		denyFeedAccess(c)
		return
	}

	cursor, _ := strconv.ParseInt(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	activities, err := fs.Store.List(refs, cursor, limit)
	if err != nil {
		Logger.LogV2.Error(fmt.Sprintf("fail to list feed %s/%s: %v", c.Param("group"), c.Param("id"), err))
		c.JSON(http.StatusInternalServerError, serializeError(http.StatusInternalServerError, "Internal error"))
		return
	}

	nextCursor := int64(0)
	if len(activities) > 0 {
		nextCursor = activities[len(activities)-1].Cursor
	}
	c.JSON(http.StatusOK, gin.H{
		"activities": activities,
		"cursor":     nextCursor,
	})
}

func (fs *FeedServer) MarkRead(c *gin.Context) {
	fs.mark(c, store.FlagRead)
}

func (fs *FeedServer) MarkSeen(c *gin.Context) {
	fs.mark(c, store.FlagSeen)
}

// mark flips one state flag on the listed activities. The request body is
// a bare JSON array of activity ids; ids that don't exist in the feed are
// skipped, not an error.
func (fs *FeedServer) mark(c *gin.Context, flag store.StateFlag) {
	caller := middlewares.CallerFromContext(c)
	refs, err := fs.Query.ResolveFeed(c.Request.Context(), c.Param("group"), c.Param("id"), caller)
	if err != nil {
		denyFeedAccess(c)
		return
	}

	var activityIds []int64
	if err := c.BindJSON(&activityIds); err != nil {
		c.JSON(http.StatusBadRequest, serializeError(http.StatusBadRequest, "Expected a JSON array of activity ids"))
		return
	}

	activities, err := fs.Store.Mark(refs, flag, activityIds)
	if err != nil {
		Logger.LogV2.Error(fmt.Sprintf("fail to mark %s on feed %s/%s: %v", flag, c.Param("group"), c.Param("id"), err))
		c.JSON(http.StatusInternalServerError, serializeError(http.StatusInternalServerError, "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// IngestEvent durably enqueues a content event for asynchronous fan-out
// and responds immediately. This is the inbound boundary the content
// management collaborator posts to whenever a post is created or its
// denormalized fields change.
func (fs *FeedServer) IngestEvent(c *gin.Context) {
	var ev struct {
		SourceID string `json:"source_id"`
		AuthorID string `json:"author_id"`
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, serializeError(http.StatusBadRequest, "Unreadable body"))
		return
	}
	if jsonErr := json.Unmarshal(raw, &ev); jsonErr != nil || ev.SourceID == "" || ev.AuthorID == "" {
		c.JSON(http.StatusBadRequest, serializeError(http.StatusBadRequest, "Event requires source_id and author_id"))
		return
	}

	if err := fs.Jobs.Enqueue(queue.TopicFanout, json.RawMessage(raw)); err != nil {
		Logger.LogV2.Error(fmt.Sprintf("fail to enqueue fanout for source %s: %v", ev.SourceID, err))
		c.JSON(http.StatusInternalServerError, serializeError(http.StatusInternalServerError, "Internal error"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"enqueued": ev.SourceID})
}

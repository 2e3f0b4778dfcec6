package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hoshi-social/feedstream/fanout"
	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/server"
	"github.com/hoshi-social/feedstream/server/query"
	"github.com/hoshi-social/feedstream/store"
	"github.com/hoshi-social/feedstream/utils"
	"github.com/hoshi-social/feedstream/utils/dotenv"
	Flag "github.com/hoshi-social/feedstream/utils/flag"
	Logger "github.com/hoshi-social/feedstream/utils/log"
	"github.com/hoshi-social/feedstream/visibility"
)

const (
	fanoutQueueName = "feedstream_fanout_queue.fifo"
)

func main() {
	Flag.ParseFlags()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic("fail to load env : " + err.Error())
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		panic("fail to connect database : " + err.Error())
	}
	if err := utils.DatabaseSetup(db); err != nil {
		panic("fail to migrate database : " + err.Error())
	}

	bus := queue.NewJobBus()
	defer bus.Close()

	// In prod the fan-out job must survive this process, so it goes to SQS
	// and the dedicated worker drains it. Everything else stays on the
	// in-process bus.
	var jobs queue.Enqueuer = bus
	if utils.IsProdEnv() {
		writer, err := queue.NewSQSMessageQueueWriter(fanoutQueueName)
		if err != nil {
			panic("fail to initialize SQS writer : " + err.Error())
		}
		jobs = &queue.TopicRouter{Durable: writer, Bus: bus}
	} else {
		// Dev runs the fan-out worker in-process off the bus.
		unreadStore := store.NewUnreadStore(utils.GetRedisClient())
		worker := fanout.NewWorker(db, store.NewActivityStore(db), unreadStore, bus)
		ctx := context.Background()
		go fanout.RunFanoutConsumer(ctx, bus, worker)
		go fanout.RunGroupUnreadConsumer(ctx, bus, worker)
	}

	activityStore := store.NewActivityStore(db)
	gate := visibility.NewPolicy(db)
	querySvc := query.NewFeedQueryService(db, gate)
	feedServer := server.NewFeedServer(querySvc, activityStore, jobs)

	router := server.NewRouter(feedServer, db)

	port := os.Getenv("PORT")
	if len(port) == 0 {
		port = "8080"
	}
	Logger.LogV2.Info(fmt.Sprint("===== Feed Server Started ====="))
	if err := router.Run(":" + port); err != nil {
		panic("server exited : " + err.Error())
	}
}

package main

import (
	"context"
	"log"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/hoshi-social/feedstream/fanout"
	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/store"
	"github.com/hoshi-social/feedstream/utils"
	"github.com/hoshi-social/feedstream/utils/dotenv"
	Flag "github.com/hoshi-social/feedstream/utils/flag"
)

const (
	fanoutQueueName    = "feedstream_fanout_queue.fifo"
	devFanoutQueueName = "feedstream-fanout-queue-dev"
	sqsWaitTimeSeconds = 20
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

	bus := queue.NewJobBus()
	defer bus.Close()

	activityStore := store.NewActivityStore(db)
	unreadStore := store.NewUnreadStore(utils.GetRedisClient())
	worker := fanout.NewWorker(db, activityStore, unreadStore, bus)

	ctx := context.Background()

	statsdClient, err := statsd.New("127.0.0.1:8125")
	if err != nil {
		log.Println("fail to create statsd client, metrics disabled : ", err.Error())
	} else {
		reporter := fanout.NewReporter(statsdClient, bus)
		go reporter.ProcessFanoutResults(ctx)
	}

	go fanout.RunGroupUnreadConsumer(ctx, bus, worker)

	sqsName := fanoutQueueName
	if !utils.IsProdEnv() {
		sqsName = devFanoutQueueName
	}
	reader, err := queue.NewSQSMessageQueueReader(sqsName, sqsWaitTimeSeconds)
	if err != nil {
		panic("fail initialize SQS message queue reader : " + err.Error())
	}

	// Main fan-out logic lives in processor
	processor := fanout.NewProcessor(reader, worker)

	log.Println("start processing fanout messages")
	if err := processor.Run(ctx); err != nil {
		panic("worker exited : " + err.Error())
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	shdredge "github.com/masonhieb/shdredge"
)

func main() {
	flow, err := shdredge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, batches, closeBatches := shdredge.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	if err := flow.Run(ctx, shdredge.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []*shdredge.Entity) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d entities at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}

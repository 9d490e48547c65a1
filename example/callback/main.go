package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/masonhieb/shdredge/pkg/shdredge"
)

func main() {
	flow, err := shdredge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(batch []*shdredge.Entity) error {
		for _, e := range batch {
			if !e.IsObservation() {
				fmt.Printf("asset command: %s\n", e.Key())
				continue
			}
			obs := e.Observation
			value, _ := obs.Value()
			fmt.Printf("%s device=%s item=%s value=%v\n",
				obs.Timestamp.Format(time.RFC3339Nano),
				obs.Device,
				obs.DataItemID,
				value,
			)
		}
		return nil
	}

	if err := flow.Run(ctx, shdredge.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

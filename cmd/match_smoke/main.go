package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"voxelhunt/internal/coordinator"
	"voxelhunt/internal/logger"
)

// match_smoke plays one scripted match against a running server.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "give up after")
	flag.Parse()

	logger.Init("info", false)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := coordinator.Options{PushInterval: 200 * time.Millisecond, PullInterval: 100 * time.Millisecond}
	alice := coordinator.New(coordinator.NewHTTPTransport(*baseURL), "0x00000000000000000000000000000000000a11ce", opts)
	bob := coordinator.New(coordinator.NewHTTPTransport(*baseURL), "0x0000000000000000000000000000000000000b0b", opts)

	id, err := alice.Create(ctx, "")
	must(err, "create")
	must(bob.Join(ctx, id), "join")
	logger.Info("match ready", "game_id", id)

	must(alice.PlaceBlock("0,0,0", "stone"), "alice place")
	must(alice.PlaceBlock("1,0,0", "gold"), "alice place")
	must(alice.HideTreasure("1,0,0"), "alice hide")
	must(bob.PlaceBlock("2,1,2", "wood"), "bob place")
	must(bob.HideTreasure("2,1,2"), "bob hide")

	done := make(chan error, 2)
	for _, c := range []*coordinator.Coordinator{alice, bob} {
		go func(c *coordinator.Coordinator) { done <- c.Run(ctx) }(c)
	}

	must(alice.FinishBuilding(ctx), "finish building")
	waitFor(ctx, "bob hunting", func() bool { return bob.Phase() == coordinator.PhaseHunting })
	waitFor(ctx, "treasures visible", func() bool {
		return len(bob.View().OpponentTreasures) > 0 && len(alice.View().OpponentTreasures) > 0
	})

	for _, loc := range bob.View().OpponentTreasures {
		found, err := bob.FindTreasure(ctx, loc)
		must(err, "bob find")
		logger.Info("bob guessed", "location", loc, "found", found)
	}
	_, err = alice.FindTreasure(ctx, "9,9,9")
	must(err, "alice find")

	must(bob.EndHunt(ctx), "bob end hunt")
	must(alice.EndHunt(ctx), "alice end hunt")
	for i := 0; i < 2; i++ {
		must(<-done, "run")
	}

	fmt.Printf("game %s: alice %d (%s), bob %d (%s)\n",
		id, alice.Score(), alice.Winner(), bob.Score(), bob.Winner())
}

func waitFor(ctx context.Context, what string, cond func() bool) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			logger.Fatal("timed out", "waiting_for", what)
		case <-ticker.C:
		}
	}
}

func must(err error, step string) {
	if err != nil {
		logger.Fatal("smoke step failed", "step", step, "error", err)
	}
}

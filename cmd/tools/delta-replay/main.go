// Command delta-replay reads a recorded telemetry.Sink database back as a
// sequence of transmitted deltas, for offline inspection of rater
// behaviour: which kinds dominated a session's traffic, how scores were
// distributed, and how much of it went to each client.
//
// Usage:
//
//	go run ./cmd/tools/delta-replay -db deltapool-telemetry.db [-client N] [-csv out.csv]
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/doomsday-net/deltapool/internal/deltapool"
	"github.com/doomsday-net/deltapool/internal/telemetry"
)

func main() {
	dbPath := flag.String("db", "", "Path to a telemetry sink database (required)")
	client := flag.Int("client", -1, "Restrict to one client index, or -1 for all")
	limit := flag.Int("limit", 10000, "Maximum number of events to load")
	csvPath := flag.String("csv", "", "Optional path to write the loaded events as CSV")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *dbPath == "" {
		log.Error("missing required -db flag")
		os.Exit(1)
	}

	sink, err := telemetry.Open(*dbPath)
	if err != nil {
		log.Error("failed to open telemetry db", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	defer sink.Close()

	events, err := sink.Events(*client, *limit)
	if err != nil {
		log.Error("failed to read events", "err", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		log.Warn("no events found", "db", *dbPath, "client", *client)
		return
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, events); err != nil {
			log.Error("failed to write csv", "path", *csvPath, "err", err)
			os.Exit(1)
		}
		log.Info("wrote csv", "path", *csvPath, "rows", len(events))
	}

	printSummary(events)
}

type kindStats struct {
	count      int
	totalScore float64
	minScore   float64
	maxScore   float64
}

func printSummary(events []telemetry.Event) {
	byKind := make(map[int]*kindStats)
	byClient := make(map[int]int)

	for _, e := range events {
		s, ok := byKind[e.Kind]
		if !ok {
			s = &kindStats{minScore: e.Score, maxScore: e.Score}
			byKind[e.Kind] = s
		}
		s.count++
		s.totalScore += e.Score
		if e.Score < s.minScore {
			s.minScore = e.Score
		}
		if e.Score > s.maxScore {
			s.maxScore = e.Score
		}
		byClient[e.ClientIdx]++
	}

	kinds := make([]int, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Ints(kinds)

	fmt.Printf("%-18s %8s %12s %10s %10s\n", "kind", "count", "avg score", "min", "max")
	for _, k := range kinds {
		s := byKind[k]
		fmt.Printf("%-18s %8d %12.2f %10.2f %10.2f\n",
			deltapool.Kind(k).String(), s.count, s.totalScore/float64(s.count), s.minScore, s.maxScore)
	}

	fmt.Println()
	clients := make([]int, 0, len(byClient))
	for c := range byClient {
		clients = append(clients, c)
	}
	sort.Ints(clients)
	for _, c := range clients {
		fmt.Printf("client %d: %d deltas\n", c, byClient[c])
	}
}

func writeCSV(path string, events []telemetry.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"client_idx", "kind", "object_id", "flags", "score", "tx_set", "resend", "tic"}); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			strconv.Itoa(e.ClientIdx),
			deltapool.Kind(e.Kind).String(),
			strconv.FormatUint(uint64(e.ObjectID), 10),
			strconv.FormatUint(uint64(e.Flags), 10),
			strconv.FormatFloat(e.Score, 'f', 4, 64),
			strconv.FormatUint(uint64(e.Set), 10),
			strconv.FormatUint(uint64(e.Resend), 10),
			strconv.Itoa(int(e.Tic)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// Command loggen writes a synthetic client/server spdlog pair for local runs of timeline-engine.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/extractors"
	"github.com/miradorstack/reconcile-timeline/internal/logsource"
)

const headerLayout = "2006-01-02 15:04:05.000000000"

type logFile struct {
	f   *os.File
	enc io.WriteCloser
	w   *bufio.Writer
}

func create(path string, codec logsource.Codec) (*logFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := logsource.Encode(codec, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &logFile{f: f, enc: enc, w: bufio.NewWriter(enc)}, nil
}

func (l *logFile) record(at time.Time, level, body string) {
	fmt.Fprintf(l.w, "[%s] [%s] %s\n", at.Format(headerLayout), level, body)
}

func (l *logFile) close() error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	if err := l.enc.Close(); err != nil {
		return err
	}
	return l.f.Close()
}

func main() {
	var (
		outDir   string
		ticks    int
		dropRate float64
		offset   time.Duration
		codec    string
		seed     uint64
	)
	flag.StringVar(&outDir, "out", ".", "Directory for client.log and server.log")
	flag.IntVar(&ticks, "ticks", 600, "Client physics ticks to generate")
	flag.Float64Var(&dropRate, "drop", 0.05, "Fraction of input snapshots the server never applies")
	flag.DurationVar(&offset, "offset", time.Hour, "Server clock lead over the client clock")
	flag.StringVar(&codec, "codec", string(logsource.CodecNone), "Compression: none, gzip, zstd, lz4, snappy")
	flag.Uint64Var(&seed, "seed", 1, "Random seed")
	flag.Parse()

	logger := log.New(log.Writer(), "loggen ", log.LstdFlags|log.Lmicroseconds)
	c := logsource.Codec(codec)

	client, err := create(filepath.Join(outDir, "client.log"+c.Extension()), c)
	if err != nil {
		logger.Fatalf("create client log: %v", err)
	}
	server, err := create(filepath.Join(outDir, "server.log"+c.Extension()), c)
	if err != nil {
		logger.Fatalf("create server log: %v", err)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	const tick = 16 * time.Millisecond

	server.record(start.Add(offset-time.Second), "info", "server has been initialized")
	client.record(start.Add(-500*time.Millisecond), "info", "Received unique ID from server: 1")

	dropped := 0
	for i := 0; i < ticks; i++ {
		at := start.Add(time.Duration(i) * tick)
		key := uint64(at.UnixMilli())
		marker := fmt.Sprintf("%s %d", extractors.CorrelationMarker, key)
		posLen := rng.Float64() * 4

		client.record(at, "info", fmt.Sprintf("[]~~ inserting into input snapshot history, it has size %d", i%8))
		client.record(at.Add(50*time.Microsecond), "info", fmt.Sprintf(
			"physics tick with delta: 0.016\nusing input snapshot: %s, physics world: poslen: %.3f", marker, posLen))
		client.record(at.Add(200*time.Microsecond), "info", "sending input snapshot "+marker)
		if i%30 == 0 {
			client.record(at.Add(15*time.Millisecond), "debug", fmt.Sprintf("update and render took %dms", 2+rng.IntN(6)))
		}

		latency := time.Duration(5+rng.IntN(25)) * time.Millisecond
		received := at.Add(latency)
		server.record(received.Add(offset), "info", "Just received input snapshot "+marker)
		server.record(received.Add(offset+100*time.Microsecond), "info", fmt.Sprintf("physics tick with delta: 0.016 (%d)", i))
		if rng.Float64() < dropRate {
			dropped++
			continue
		}
		server.record(received.Add(offset+300*time.Microsecond), "info", "updated player state "+marker)
		if i%3 == 0 {
			server.record(received.Add(offset+time.Millisecond), "info", "Sending game update "+marker)
			client.record(received.Add(latency), "info", "Just received a game update "+marker)
		}
	}

	if err := client.close(); err != nil {
		logger.Fatalf("close client log: %v", err)
	}
	if err := server.close(); err != nil {
		logger.Fatalf("close server log: %v", err)
	}
	logger.Printf("wrote %d ticks (%d unacknowledged) to %s", ticks, dropped, outDir)
}

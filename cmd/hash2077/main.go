// Command hash2077 loads a set of per-part candidate lists and a set of
// (SHA256, Adler32) target rows, then searches every ordered concatenation
// of one candidate per part for one whose SHA256 digest matches a target.
// Grounded on cmd/stream-commp/main.go's getopt/isatty/log CLI shape.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pborman/options"

	"github.com/0x1f9f1/hash2077/collider"
	"github.com/0x1f9f1/hash2077/sha256x"
)

func main() {
	opts := &struct {
		Parts      string       `getopt:"-p --parts        Comma-separated list of part files, one candidate per line, in concatenation order"`
		Targets    string       `getopt:"-t --targets      Target file: one \"<sha256-hex> <adler32-hex>\" pair per line"`
		Threads    int          `getopt:"-j --threads      Worker goroutines (0 = runtime.NumCPU())"`
		BatchSize  uint64       `getopt:"-b --batch-size   Prefix table row budget"`
		LookupSize uint64       `getopt:"-l --lookup-size  Suffix table row budget"`
		Quiet      bool         `getopt:"-q --quiet        Suppress progress reporting"`
		Help       options.Help `getopt:"-h --help         Display help"`
	}{
		Threads:    0,
		BatchSize:  1 << 24,
		LookupSize: 1 << 24,
	}

	options.RegisterAndParse(opts)

	if opts.Parts == "" || opts.Targets == "" {
		log.Fatal("both --parts and --targets are required")
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	e := collider.New()

	if err := loadTargets(e, opts.Targets); err != nil {
		log.Fatalf("loading targets: %s", err)
	}

	for _, path := range strings.Split(opts.Parts, ",") {
		if err := loadPart(e, path); err != nil {
			log.Fatalf("loading part %q: %s", path, err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigs; ok {
			log.Println("interrupted, cancelling search...")
			e.Cancel()
		}
	}()
	defer signal.Stop(sigs)

	quiet := opts.Quiet || !(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	if !quiet {
		e.Progress = func(fraction, teraHashesPerSecond float64) {
			log.Println(collider.FormatProgress(fraction, teraHashesPerSecond))
		}
	}

	start := time.Now()
	found, err := e.Run(threads, opts.BatchSize, opts.LookupSize)
	elapsed := time.Since(start)

	if err != nil {
		if _, cancelled := err.(*collider.Cancelled); !cancelled {
			log.Fatal(err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nsearched %d checks in %s, found %d plaintext(s)\n",
		e.TotalChecks(), elapsed.Round(time.Millisecond), found)

	for _, s := range e.Results() {
		fmt.Println(s)
	}

	if err != nil {
		os.Exit(1)
	}
}

func loadTargets(e *collider.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("targets line %d: expected \"<sha256-hex> <adler32-hex>\", got %q", lineNo, line)
		}

		shaBytes, err := hex.DecodeString(fields[0])
		if err != nil || len(shaBytes) != sha256x.Size {
			return fmt.Errorf("targets line %d: bad sha256 hex %q", lineNo, fields[0])
		}
		var sha sha256x.Hash
		copy(sha[:], shaBytes)

		adler, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return fmt.Errorf("targets line %d: bad adler32 hex %q", lineNo, fields[1])
		}

		e.AddHash(uint32(adler), sha)
	}
	return scanner.Err()
}

func loadPart(e *collider.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e.NextPart()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := e.AddString(scanner.Bytes()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"

	"github.com/corvid/vellum/internal/board"
	"github.com/corvid/vellum/internal/book"
	"github.com/corvid/vellum/internal/engine"
	"github.com/corvid/vellum/internal/storage"
	"github.com/corvid/vellum/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashSizeMB = flag.Int("hash", 64, "transposition table size in MB")
	bookPath   = flag.String("book", "", "path to a Polyglot (.bin) opening book")
)

func main() {
	// `--test <FEN> <expected_uci> <depth>` bypasses the UCI loop entirely
	// (§6.2) and is checked before flag.Parse, since the FEN argument itself
	// contains spaces that flag would otherwise choke on.
	if len(os.Args) > 1 && os.Args[1] == "--test" {
		os.Exit(runTestMode(os.Args[2:]))
	}

	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	eng := engine.NewEngine(*hashSizeMB)

	ttDB := openSnapshotDB()
	if ttDB != nil {
		defer ttDB.Close()
		loadSnapshot(eng, ttDB)
	}

	protocol := uci.New(eng)
	loadBook(protocol)
	if ttDB != nil {
		protocol.SetOnQuit(func() { saveSnapshot(eng, ttDB) })
	}

	protocol.Run()
}

func openSnapshotDB() *badger.DB {
	cacheDir, err := storage.GetCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string cache directory unavailable: %v\n", err)
		return nil
	}

	opts := badger.DefaultOptions(filepath.Join(cacheDir, "tt"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string TT snapshot database unavailable: %v\n", err)
		return nil
	}
	return db
}

func loadSnapshot(eng *engine.Engine, db *badger.DB) {
	restored, err := eng.LoadSnapshot(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string TT snapshot load failed: %v\n", err)
		return
	}
	if restored > 0 {
		fmt.Fprintf(os.Stderr, "info string restored %s TT entries from snapshot\n", humanize.Comma(int64(restored)))
	}
}

func saveSnapshot(eng *engine.Engine, db *badger.DB) {
	if err := eng.SaveSnapshot(db); err != nil {
		fmt.Fprintf(os.Stderr, "info string TT snapshot save failed: %v\n", err)
	}
}

func loadBook(protocol *uci.UCI) {
	if *bookPath == "" {
		return
	}

	cacheDir, err := storage.GetCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string book cache unavailable: %v\n", err)
		loadBookUncached(protocol)
		return
	}

	cache, err := book.OpenCache(filepath.Join(cacheDir, "book"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string book cache open failed: %v\n", err)
		loadBookUncached(protocol)
		return
	}

	bk, err := cache.LoadPolyglotCached(*bookPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string book load failed: %v\n", err)
		cache.Close()
		return
	}

	fmt.Fprintf(os.Stderr, "info string loaded book %s (%s positions)\n", *bookPath, humanize.Comma(int64(bk.Size())))
	protocol.SetBook(bk)
}

func loadBookUncached(protocol *uci.UCI) {
	bk, err := book.LoadPolyglot(*bookPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string book load failed: %v\n", err)
		return
	}
	protocol.SetBook(bk)
}

// runTestMode implements `--test <FEN> <expected_uci> <depth>`: it searches
// the given position to the given depth and reports success (exit 0) iff
// the returned move matches expected_uci exactly.
func runTestMode(args []string) int {
	if len(args) < 8 {
		fmt.Fprintln(os.Stderr, "usage: vellum-uci --test <fen (6 fields)> <expected_uci> <depth>")
		return 1
	}

	fen := strings.Join(args[0:6], " ")
	expected := args[6]
	depth, err := strconv.Atoi(args[7])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid depth %q: %v\n", args[7], err)
		return 1
	}

	pos, err := board.ParseFEN(fen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid FEN %q: %v\n", fen, err)
		return 1
	}

	eng := engine.NewEngine(*hashSizeMB)
	move := eng.SearchWithLimits(pos, engine.SearchLimits{Depth: depth, Infinite: true})

	got := "0000"
	if move != board.NoMove {
		got = move.String()
	}

	fmt.Printf("bestmove %s\n", got)
	if got != expected {
		fmt.Fprintf(os.Stderr, "expected %s, got %s\n", expected, got)
		return 1
	}
	return 0
}

// Command readcache-admin talks to the analysis service's administrative
// endpoints.
//
//	readcache-admin [-url URL] [-timeout D] stats
//	readcache-admin [-url URL] [-timeout D] clear-table <name>
//	readcache-admin [-url URL] [-timeout D] get <fingerprint>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prashanthpai/readcache/analysis"

	"github.com/sirupsen/logrus"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] stats | clear-table <name> | get <fingerprint>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	baseURL := flag.String("url", getEnv("ANALYSIS_URL", "http://127.0.0.1:8090"), "analysis service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	client, err := analysis.NewClient(analysis.Config{BaseURL: *baseURL, Timeout: *timeout})
	if err != nil {
		log.WithError(err).Fatal("creating analysis client")
	}

	if err := run(context.Background(), client, log, flag.Args()); err != nil {
		log.WithError(err).WithField("command", flag.Arg(0)).Fatal("command failed")
	}
}

func run(ctx context.Context, client *analysis.Client, log logrus.FieldLogger, args []string) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch cmd := args[0]; cmd {
	case "stats":
		stats, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(stats)

	case "clear-table":
		if len(args) != 2 {
			return fmt.Errorf("clear-table needs exactly one table name")
		}
		if err := client.ClearTable(ctx, args[1]); err != nil {
			return err
		}
		log.WithField("table", args[1]).Info("cleared")
		return nil

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("get needs exactly one fingerprint")
		}
		result, ok, err := client.Get(ctx, args[1])
		if err != nil {
			return err
		}
		if !ok {
			log.WithField("fingerprint", args[1]).Warn("not cached")
			os.Exit(1)
		}
		log.WithFields(logrus.Fields{"fingerprint": args[1], "rows": len(result.Rows)}).Debug("fetched")
		return enc.Encode(result)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

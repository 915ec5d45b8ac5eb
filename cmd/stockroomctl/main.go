package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/odyssey-erp/stockroom/cmd/stockroomctl/cli"
	"github.com/odyssey-erp/stockroom/internal/app"
)

const usage = `usage: stockroomctl <command> [flags]

commands:
  check   -file PATH [-json]      normalise a store document and report repairs
  scan                            enqueue a low-stock scan
  reorder -supplier ID -item ID -qty N
                                  enqueue one auto-order
  queue                           show default queue counters
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return cli.ExitFailure
	}
	switch args[0] {
	case "check":
		fs := flag.NewFlagSet("check", flag.ContinueOnError)
		path := fs.String("file", "", "store document to check")
		asJSON := fs.Bool("json", false, "print a JSON summary")
		if err := fs.Parse(args[1:]); err != nil {
			return cli.ExitFailure
		}
		return cli.CheckCommand(cli.CheckOptions{Path: *path, JSONOutput: *asJSON})
	case "scan", "reorder", "queue":
		return runJobs(args[0], args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return cli.ExitFailure
	}
}

func runJobs(cmd string, args []string) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	supplier := fs.String("supplier", "", "supplier id")
	item := fs.String("item", "", "item id")
	qty := fs.Int("qty", 0, "quantity to order")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: load config: %v\n", cmd, err)
		return cli.ExitFailure
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cmd {
	case "scan":
		info, err := jobsCLI.Scan(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan: %v\n", err)
			return cli.ExitFailure
		}
		fmt.Printf("enqueued %s (%s)\n", info.ID, info.Type)
	case "reorder":
		info, err := jobsCLI.Reorder(ctx, *supplier, *item, *qty)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reorder: %v\n", err)
			return cli.ExitFailure
		}
		fmt.Printf("enqueued %s (%s)\n", info.ID, info.Type)
	case "queue":
		stats, err := jobsCLI.InspectQueue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue: %v\n", err)
			return cli.ExitFailure
		}
		fmt.Println(stats)
	}
	return cli.ExitOK
}

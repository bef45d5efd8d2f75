package main

import (
	"flag"
	"fmt"
	"os"

	"studyhub/pkg/logger"
	"studyhub/pkg/store"
)

// inspect dumps the raw store keyspace for debugging. Pass -prefix to
// narrow the scan to one subtree, e.g. -prefix chatbot.
func main() {
	var dbPath string
	var prefix string
	var values bool
	flag.StringVar(&dbPath, "db", "./.database", "pebble DB path")
	flag.StringVar(&prefix, "prefix", "", "subtree prefix to scan")
	flag.BoolVar(&values, "values", false, "print values alongside keys")
	flag.Parse()

	logger.Init()
	if err := store.Open(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	keys, err := store.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list keys: %v\n", err)
		os.Exit(1)
	}
	for _, k := range keys {
		if !values {
			fmt.Println(k)
			continue
		}
		raw, err := store.GetRaw(k)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", k, err)
			continue
		}
		fmt.Printf("%s\t%s\n", k, raw)
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", len(keys))
}

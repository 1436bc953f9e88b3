// accordctl is a read-only CLI against a running accordd instance: health
// checks and audit journal inspection (spec §6's Journal::list, exposed
// over HTTP by cmd/accordd).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "accordd base URL")
	from := flag.Uint64("from", 1, "journal: first sequence number (journal subcommand)")
	to := flag.Uint64("to", 0, "journal: last sequence number, 0 means latest (journal subcommand)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: accordctl [-addr url] <health|journal>")
		os.Exit(2)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	switch flag.Arg(0) {
	case "health":
		if err := get(client, *addr+"/healthz", os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "journal":
		url := fmt.Sprintf("%s/v1/journal?from=%d&to=%d", *addr, *from, *to)
		if err := get(client, url, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		os.Exit(2)
	}
}

func get(client *http.Client, url string, out io.Writer) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, string(body))
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}

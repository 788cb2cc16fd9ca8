package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JustIsQi/supplierchainsgraph/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <file>",
	Short: "Load extraction records from a JSON lines file into the queue",
	Long: `Reads one JSON record per line and pushes each onto the pending queue.
A JSON array file is accepted too. Records are validated only as far as
being well-formed JSON; semantic checks happen at consume time.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	q, err := queue.New(cmd.Context(), queue.Config{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	log := logrus.WithField("component", "enqueue")

	// Peek the first non-space byte to tell a JSON array from JSON lines.
	br := bufio.NewReader(f)
	first, err := peekNonSpace(br)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	enqueued := 0
	if first == '[' {
		var records []json.RawMessage
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return fmt.Errorf("parse record array: %w", err)
		}
		for _, raw := range records {
			if _, err := q.EnqueueRaw(cmd.Context(), raw); err != nil {
				return err
			}
			enqueued++
		}
	} else {
		scanner := bufio.NewScanner(br)
		scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			data := scanner.Bytes()
			if len(data) == 0 {
				continue
			}
			if !json.Valid(data) {
				log.WithField("line", line).Warn("Skipping malformed JSON line")
				continue
			}
			if _, err := q.EnqueueRaw(cmd.Context(), data); err != nil {
				return err
			}
			enqueued++
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("scan %s: %w", args[0], err)
		}
	}

	log.WithField("count", enqueued).Info("Records enqueued")
	return nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			br.ReadByte()
		default:
			return b[0], nil
		}
	}
}

// cmd/tools/taxonomy-tool/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"styling-assistant/internal/common/config"
	"styling-assistant/internal/common/database"
	"styling-assistant/internal/styling/matcher"
	"styling-assistant/internal/styling/taxonomy"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		help(out)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", "configs/taxonomy.json", "Path to taxonomy document")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		tax, err := taxonomy.FileSource{Path: *path}.Load(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Taxonomy %q is valid: %d categories.\n", tax.Version(), len(tax.Names()))
		return nil

	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		path := fs.String("path", "", "Taxonomy document to re-encode (builtin when empty)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		tax, err := load(*path)
		if err != nil {
			return err
		}
		raw, err := taxonomy.Encode(tax)
		if err != nil {
			return err
		}
		var pretty interface{}
		if err := json.Unmarshal(raw, &pretty); err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)

	case "publish":
		fs := flag.NewFlagSet("publish", flag.ContinueOnError)
		path := fs.String("path", "", "Taxonomy document to publish (builtin when empty)")
		addr := fs.String("redis", "localhost:6379", "Redis address")
		key := fs.String("key", "styling:taxonomy", "Redis key")
		ttl := fs.Duration("ttl", time.Hour, "Cache TTL (0 keeps the key forever)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		tax, err := load(*path)
		if err != nil {
			return err
		}
		rc, err := database.NewRedis(config.RedisConfig{Address: *addr})
		if err != nil {
			return err
		}
		defer rc.Close()
		ctx := context.Background()
		if err := rc.Ping(ctx); err != nil {
			return err
		}
		if err := publish(ctx, rc.Client, *key, *ttl, tax); err != nil {
			return err
		}
		fmt.Fprintf(out, "Published taxonomy %q to %s (key %s, ttl %s).\n", tax.Version(), *addr, *key, *ttl)
		return nil

	case "match":
		fs := flag.NewFlagSet("match", flag.ContinueOnError)
		path := fs.String("path", "", "Taxonomy document (builtin when empty)")
		message := fs.String("message", "", "Message to score")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		tax, err := load(*path)
		if err != nil {
			return err
		}
		result := matcher.New(tax).Match(*message)
		fmt.Fprintf(out, "question: %t\n", result.IsQuestion)
		for _, c := range result.Candidates {
			fmt.Fprintf(out, "%.1f  %s = %s\n", float64(c.Confidence), c.Category, c.Value)
		}
		return nil

	case "help":
		help(out)
		return nil

	default:
		help(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func load(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		return taxonomy.Builtin(), nil
	}
	return taxonomy.FileSource{Path: path}.Load(context.Background())
}

func publish(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration, tax *taxonomy.Taxonomy) error {
	raw, err := taxonomy.Encode(tax)
	if err != nil {
		return err
	}
	if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func help(out io.Writer) {
	fmt.Fprintln(out, `Taxonomy Tool

Usage:
  taxonomy-tool <command> [options]

Commands:
  validate   Check a taxonomy document against the schema and catalog rules
  export     Print a taxonomy document (the builtin catalog by default)
  publish    Write a taxonomy document to the redis cache key
  match      Score a message against the taxonomy
  help       Show this help message`)
}

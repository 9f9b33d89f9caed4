// Command lazylist browses a remotely paged collection from the terminal,
// loading the next page whenever the cursor reaches the end of the list.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/lazylist/internal/config"
	"github.com/Sternrassler/lazylist/pkg/client"
	"github.com/Sternrassler/lazylist/pkg/logging"
	"github.com/Sternrassler/lazylist/pkg/metrics"
	"github.com/Sternrassler/lazylist/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("lazylist", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Parse(os.Args[1:])

	cfg, err := config.Load("", flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lazylist: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("lazylist failed")
	}
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	clientCfg := client.DefaultConfig(cfg.BaseURL, cfg.UserAgent)
	clientCfg.Redis = redisClient
	clientCfg.RateLimit = cfg.RateLimit
	clientCfg.MaxRetries = cfg.MaxRetries
	clientCfg.InitialBackoff = cfg.InitialBackoff
	clientCfg.Timeout = cfg.Timeout

	pageClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer pageClient.Close()

	if cfg.ListenAddr != "" {
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           newMux(redisClient),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.ListenAddr).Msg("Serving health and metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Health server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	fetch := client.PageSource[json.RawMessage](pageClient, cfg.Endpoint, cfg.PageSize)
	acc, err := pagination.New(ctx, cfg.Offset, cfg.PageSize, fetch)
	if err != nil {
		return err
	}

	ctrl := pagination.NewController[json.RawMessage]()
	acc.Attach(ctx, ctrl)

	return browse(ctx, acc, ctrl, in, out)
}

func newMux(redisClient *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while a configured Redis is unreachable.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// browse prints the loaded items and reads commands from in: an empty line
// moves the cursor to the last loaded item, which loads the next page when
// more are expected; "q" quits.
func browse[T any](ctx context.Context, acc *pagination.Accumulator[T], ctrl *pagination.Controller[T], in io.Reader, out io.Writer) error {
	content := acc.Content()
	printed := printFrom(out, content, 0)
	fmt.Fprintf(out, "-- %d of %d loaded, Enter for more, q to quit --\n", printed, acc.Total())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "q", "quit":
			return nil
		case "":
		default:
			fmt.Fprintln(out, "-- Enter for more, q to quit --")
			continue
		}

		if acc.AtEnd() {
			fmt.Fprintf(out, "-- end of list, %d items --\n", content.Len())
			continue
		}

		// A line-mode terminal cannot redraw, so the page is printed only after
		// the continuation finished. A list widget would render on its own tick.
		ctrl.ScrolledTo(content, content.Len()-1)
		if err := waitIdle(ctx, ctrl); err != nil {
			return nil
		}

		if content.Len() == printed {
			fmt.Fprintln(out, "-- could not load more, Enter to retry --")
			continue
		}
		printed = printFrom(out, content, printed)
		fmt.Fprintf(out, "-- %d of %d loaded --\n", printed, acc.Total())
	}
	return scanner.Err()
}

// waitIdle polls ctrl until no continuation is in flight or ctx is done.
func waitIdle[T any](ctx context.Context, ctrl *pagination.Controller[T]) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for ctrl.Busy() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// printFrom writes items [from, Len) and returns the new printed count.
func printFrom[T any](out io.Writer, content *pagination.Content[T], from int) int {
	n := from
	content.Range(func(i int, item T) bool {
		if i < from {
			return true
		}
		fmt.Fprintf(out, "%5d  %s\n", i, render(item))
		n = i + 1
		return true
	})
	return n
}

func render(item any) string {
	switch v := item.(type) {
	case json.RawMessage:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

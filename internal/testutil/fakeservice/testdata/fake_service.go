package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// A stand-in for the tracking server, training job and serving app.
func main() {
	var (
		host       string
		port       string
		health     string
		exitCode   int
		exitAfter  time.Duration
		readyAfter time.Duration
		ignoreTerm bool
		stderrMsg  string
		stdoutMsg  string
		writeFile  string
	)
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "", "port; empty runs without a listener")
	flag.StringVar(&health, "health", "/health", "health path")
	flag.IntVar(&exitCode, "exit-code", 0, "exit status when exiting on its own")
	flag.DurationVar(&exitAfter, "exit-after", -1, "exit on its own after this long")
	flag.DurationVar(&readyAfter, "ready-after", 0, "report unhealthy until this long after start")
	flag.BoolVar(&ignoreTerm, "ignore-term", false, "ignore SIGTERM")
	flag.StringVar(&stderrMsg, "stderr", "", "line written to stderr at start")
	flag.StringVar(&stdoutMsg, "stdout", "", "line written to stdout at start")
	flag.StringVar(&writeFile, "write-file", "", "file to create at start")
	// Accept the tracking server's argv: `server --backend-store-uri ... --default-artifact-root ...`.
	flag.String("backend-store-uri", "", "ignored")
	flag.String("default-artifact-root", "", "ignored")
	if len(os.Args) > 1 && os.Args[1] == "server" {
		os.Args = append(os.Args[:1], os.Args[2:]...)
	}
	flag.Parse()

	if stdoutMsg != "" {
		fmt.Println(stdoutMsg)
	}
	if stderrMsg != "" {
		fmt.Fprintln(os.Stderr, stderrMsg)
	}
	if writeFile != "" {
		if err := os.WriteFile(writeFile, []byte(os.Getenv("FAKE_PAYLOAD")), 0o644); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	if ignoreTerm {
		signal.Ignore(syscall.SIGTERM)
	} else {
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	}

	var srv *http.Server
	if port != "" {
		start := time.Now()
		mux := http.NewServeMux()
		mux.HandleFunc(health, func(w http.ResponseWriter, r *http.Request) {
			if time.Since(start) < readyAfter {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("OK"))
		})
		srv = &http.Server{Addr: host + ":" + port, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server error: %v", err)
			}
		}()
	}

	var exitCh <-chan time.Time
	if exitAfter >= 0 {
		exitCh = time.After(exitAfter)
	}
	select {
	case <-exitCh:
		os.Exit(exitCode)
	case <-sigCh:
	}
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"execjudge/internal/cli/command"
	"execjudge/internal/cli/config"
	httpclient "execjudge/internal/cli/http"
	"execjudge/internal/cli/local"
	"execjudge/internal/cli/repl"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	localMode := flag.Bool("local", false, "Judge in-process instead of calling the server")
	requestFile := flag.String("file", "", "Judge one request JSON file and exit")
	action := flag.String("action", "", "Override the action of -file (run or submit)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	var (
		executor repl.Executor
		client   *httpclient.Client
	)
	if *localMode {
		judge, err := local.New(cfg.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init local judge failed: %v\n", err)
			return
		}
		executor = judge
	} else {
		client = httpclient.New(cfg.BaseURL, cfg.Timeout)
		executor = client
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := repl.New(executor, client, command.Registry(), cfg.HistoryFile, cfg.PrettyJSON != nil && *cfg.PrettyJSON, os.Stdout)
	if *requestFile == "" {
		if err := session.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return
	}

	ok := judgeFile(ctx, executor, session, *requestFile, *action)
	stop()
	if !ok {
		os.Exit(1)
	}
}

func judgeFile(ctx context.Context, executor repl.Executor, session *repl.Session, path, action string) bool {
	req, err := command.LoadRequest(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return false
	}
	if action != "" {
		req.Action = action
	}
	resp, err := executor.Execute(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return false
	}
	session.Render(resp)
	return resp.StatusCode == http.StatusOK
}

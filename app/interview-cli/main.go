// Command interview-cli runs a text-mode mock interview against the API: it
// starts an interview, joins the call over a websocket, prints the
// conversation and submits the transcript for analysis when it ends.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/intervuo/internal/analysis"
	"github.com/yoockh/intervuo/internal/logger"
	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/services"
	"github.com/yoockh/intervuo/internal/session"
	"github.com/yoockh/intervuo/internal/transport"
	"github.com/yoockh/intervuo/internal/transport/ultravox"
)

type cliConfig struct {
	API      string `env:"INTERVUO_API" envDefault:"http://localhost:5210"`
	Token    string `env:"INTERVUO_TOKEN"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"error"`
}

func main() {
	_ = godotenv.Load()

	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	var ic models.InterviewConfig
	var level, typ string
	flag.StringVar(&cfg.API, "api", cfg.API, "API base URL")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "ID token (default $INTERVUO_TOKEN)")
	flag.StringVar(&ic.Company, "company", "", "company name")
	flag.StringVar(&ic.Role, "role", "", "role title")
	flag.StringVar(&level, "level", string(models.LevelMid), "Internship|Entry-Level|Mid-Level|Senior-Level")
	flag.StringVar(&typ, "type", string(models.TypeTechnical), "technical|behavioral|system-design|coding")
	flag.StringVar(&ic.PreferredLanguage, "language", "", "preferred programming language")
	flag.Parse()

	ic.Level = models.Level(level)
	ic.InterviewType = models.InterviewType(typ)
	ic.Normalize()
	if reason := ic.Validate(); reason != "" {
		fmt.Fprintln(os.Stderr, reason)
		flag.Usage()
		os.Exit(2)
	}
	if cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "an ID token is required (-token or INTERVUO_TOKEN)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, ic, logger.NewWithOutput(os.Stderr, cfg.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliConfig, ic models.InterviewConfig, log *logrus.Logger) error {
	api := analysis.NewClient(cfg.API, cfg.Token, &http.Client{Timeout: 2 * time.Minute})

	var started services.StartResult
	err := api.Do(ctx, http.MethodPost, "/api/start-interview", map[string]string{
		"company":           ic.Company,
		"role":              ic.Role,
		"level":             string(ic.Level),
		"interviewType":     string(ic.InterviewType),
		"preferredLanguage": ic.PreferredLanguage,
		"medium":            "websocket",
	}, &started)
	if err != nil {
		return fmt.Errorf("start interview: %w", err)
	}
	fmt.Printf("interview %s started (call %s)\n", started.InterviewID, started.CallID)

	p := &printer{}
	factory := func() (transport.Transport, error) {
		c := ultravox.New(log)
		c.OnStatus(p.status)
		c.OnTranscripts(p.transcripts)
		return c, nil
	}

	ctrl := session.NewController(factory, api, session.Options{Logger: log})
	defer ctrl.Close()

	if err := ctrl.Join(ctx, started.Handle(), session.Interview{ID: started.InterviewID, Config: ic}); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	fmt.Println("type to answer, /end to finish")

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case out := <-ctrl.Outcomes():
			report(out)
			return nil

		case <-ctx.Done():
			return end(ctrl)

		case line, ok := <-lines:
			if !ok {
				return end(ctrl)
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/end":
				return end(ctrl)
			default:
				if err := ctrl.SendText(ctx, line); err != nil {
					fmt.Fprintln(os.Stderr, "send:", err)
				}
			}
		}
	}
}

func end(ctrl *session.Controller) error {
	fmt.Println("ending interview, analysing transcript...")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	out, err := ctrl.EndInterview(ctx)
	if errors.Is(err, session.ErrAlreadyAnalyzing) {
		select {
		case out = <-ctrl.Outcomes():
		case <-ctx.Done():
			return ctx.Err()
		}
	} else if err != nil && out.Result == "" {
		return err
	}
	report(out)
	return nil
}

func report(out session.Outcome) {
	fmt.Printf("\nsession %s: %s\n", out.Reason, out.Result)
	if out.Err != nil {
		fmt.Println("error:", out.Err)
	}
	if out.Analysis == nil {
		return
	}

	fmt.Println("\nSummary:", out.Analysis.Summary)
	for _, s := range out.Analysis.Analysis.Strengths {
		fmt.Println("  +", s)
	}
	for _, s := range out.Analysis.Analysis.AreasForImprovement {
		fmt.Println("  -", s)
	}
	for _, m := range models.Metrics {
		if v, ok := out.Analysis.Score(m); ok {
			fmt.Printf("  %-16s %d/10\n", m, v)
		} else {
			fmt.Printf("  %-16s n/a\n", m)
		}
	}
}

// printer echoes status changes and each transcript line once it is final.
type printer struct {
	mu      sync.Mutex
	last    string
	printed int
}

func (p *printer) status(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s == p.last {
		return
	}
	p.last = s
	fmt.Printf("[%s]\n", s)
}

func (p *printer) transcripts(ts []transport.Transcript) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.printed < len(ts) && ts[p.printed].IsFinal {
		t := ts[p.printed]
		label := "Candidate"
		if sp, ok := models.ParseSpeaker(t.Speaker); ok {
			label = sp.Label()
		}
		fmt.Printf("%s: %s\n", label, t.Text)
		p.printed++
	}
}

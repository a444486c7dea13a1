// Command surveyctl runs the urban-perceptions survey flow from a terminal:
// consent, demographic profile, then one map page per theme with geocode
// search, category layers, hand-drawn shapes and submission.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/boundary"
	"github.com/urbanperceptions/survey-client/internal/core/config"
	"github.com/urbanperceptions/survey-client/internal/core/httpclient"
	"github.com/urbanperceptions/survey-client/internal/layercache"
	"github.com/urbanperceptions/survey-client/internal/logger"
	"github.com/urbanperceptions/survey-client/internal/observability"
	"github.com/urbanperceptions/survey-client/internal/searchcache"
	"github.com/urbanperceptions/survey-client/internal/selection"
	"github.com/urbanperceptions/survey-client/internal/session"
	"github.com/urbanperceptions/survey-client/internal/survey"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	apiFlag := flag.String("api", "", "collaborator API base URL (overrides API_BASE_URL)")
	secretFlag := flag.String("test-mode-secret", "", "shared secret unlocking test mode")
	stateFlag := flag.String("state-dir", "", "session state directory (overrides SESSION_STATE_DIR)")
	deviceFlag := flag.String("device", "", "device id for the redis session driver")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.FromEnv()
	if *apiFlag != "" {
		cfg.APIBaseURL = strings.TrimSpace(*apiFlag)
	}
	if *stateFlag != "" {
		cfg.Session.StateDir = *stateFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "surveyctl",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)

	ctx := context.Background()

	store, err := openSessionStore(ctx, cfg, *deviceFlag)
	if err != nil {
		appLog.Error("session store unavailable", "driver", cfg.Session.Driver, "err", err)
		return 1
	}
	sess, err := store.Load(ctx)
	if err != nil {
		appLog.Error("session load failed", "err", err)
		return 1
	}

	testMode := sess.TestMode || cfg.TestMode
	if !testMode && session.SecretMatches(cfg.TestModeSecret, *secretFlag) {
		testMode = true
	}

	outbound := httpclient.NewOutbound()
	if cfg.FetchTimeout > 0 {
		outbound.Timeout = cfg.FetchTimeout
	}
	client, err := api.New(cfg.APIBaseURL, appLog,
		api.WithHTTPClient(outbound),
		api.WithTestMode(testMode))
	if err != nil {
		appLog.Error("bad API base URL", "url", cfg.APIBaseURL, "err", err)
		return 1
	}

	ui := newUI(os.Stdin, os.Stdout)

	resuming := sess.ParticipantID != ""
	if !resuming {
		if !ui.consent() {
			ui.say("Consent declined. Nothing was recorded.")
			return 0
		}
		pid, err := client.CreateParticipant(ctx)
		if err != nil {
			appLog.Error("consent failed", "err", err)
			return 1
		}
		sess = session.Session{ParticipantID: pid, TestMode: testMode}
		if err := store.Save(ctx, sess); err != nil {
			appLog.Warn("session save failed, resume will not work", "err", err)
		}

		p := ui.promptProfile()
		if err := client.SaveProfile(ctx, pid, p); err != nil {
			appLog.Error("profile rejected", "err", err)
			return 1
		}
	} else {
		ui.say("Resuming session for participant %s.", sess.ParticipantID)
	}

	gate := boundary.New(cfg.StudyBBox)
	gate.Load(ctx, client, appLog)
	if gate.UsingFallback() {
		appLog.Warn("city boundary unavailable, gating on study bbox")
	}

	pages := make([]*survey.Page, 0, len(cfg.Themes))
	for _, theme := range cfg.Themes {
		layers := layercache.New(client, gate, layercache.Config{
			CityBBox:       cfg.StudyBBox,
			FirstLoadLimit: cfg.FirstLoadLimit,
			ViewportLimit:  cfg.ViewportLimit,
		}, appLog)
		pages = append(pages, survey.NewPage(survey.PageConfig{
			Theme:            theme,
			Backend:          client,
			Layers:           layers,
			Selections:       selection.NewSet(theme, gate, cfg.DuplicateTolerance),
			SearchCache:      searchcache.New(cfg.SearchCacheSize),
			DebounceInterval: cfg.DebounceInterval,
			InitialViewport:  cfg.StudyBBox,
			Logger:           appLog,
		}))
	}

	wiz := survey.NewWizard(pages)
	if err := ui.runWizard(ctx, wiz, client, sess.ParticipantID); err != nil {
		appLog.Error("survey aborted", "err", err)
		return 1
	}
	if wiz.Done() {
		ui.say("All themes complete. Thank you for taking part.")
	}
	return 0
}

func openSessionStore(ctx context.Context, cfg config.Config, device string) (session.Store, error) {
	switch cfg.Session.Driver {
	case "redis":
		if device == "" {
			device = os.Getenv("SESSION_DEVICE_ID")
		}
		if device == "" {
			device = "default"
		}
		return session.NewRedisStore(ctx, cfg.Session.RedisAddr, device)
	case "", "file":
		return session.NewFileStore(cfg.Session.StateDir), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}
}

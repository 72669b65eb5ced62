package commands

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/facebookincubator/go-belt"
	xruntime "github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	errmonsentry "github.com/facebookincubator/go-belt/tool/experimental/errmon/implementation/sentry"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/xaionaro-go/screensnap/pkg/config"
	"github.com/xaionaro-go/screensnap/pkg/observability"
	"github.com/xaionaro-go/screensnap/pkg/xpath"
)

const programName = "screensnap"

var setCallerPCFilterOnce sync.Once

func setDefaultCallerPCFilter() {
	setCallerPCFilterOnce.Do(func() {
		xruntime.DefaultCallerPCFilter = observability.CallerPCFilter(xruntime.DefaultCallerPCFilter)
	})
}

func initContext(
	ctx context.Context,
	cfg config.Config,
) context.Context {
	observability.LogLevelFilter.SetLevel(logger.Level(cfg.LoggerLevel))
	setDefaultCallerPCFilter()

	secretsFilter := observability.NewSecretValuesFilter(cfg.SentryDSN)

	ll := xlogrus.DefaultLogrusLogger()
	l := xlogrus.New(ll).WithLevel(logger.LevelTrace).WithPreHooks(
		&observability.LogLevelFilter,
		secretsFilter,
	)

	if cfg.LogFile != "" {
		logPath, err := xpath.Expand(cfg.LogFile)
		if err != nil {
			l.Errorf("unable to expand path '%s': %v", cfg.LogFile, err)
		} else {
			f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
			if err != nil {
				l.Errorf("failed to open log file '%s': %v", logPath, err)
			} else {
				ll.SetOutput(io.MultiWriter(os.Stderr, f))
			}
		}
	}

	logrus.SetLevel(xlogrus.LevelToLogrus(l.Level()))

	if cfg.SentryDSN != "" {
		l.Infof("setting up Sentry at DSN '%s'", cfg.SentryDSN)
		sentryClient, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:     cfg.SentryDSN,
			Release: releaseName(),
		})
		if err != nil {
			l.Errorf("unable to initialize the Sentry client: %v", err)
		} else {
			sentryErrorMonitor := errmonsentry.New(sentryClient)
			ctx = errmon.CtxWithErrorMonitor(ctx, sentryErrorMonitor)
			l = l.WithPreHooks(observability.NewErrorMonitorLoggerHook(
				ctx,
				sentryErrorMonitor,
			))
		}
	}

	ctx = logger.CtxWithLogger(ctx, l)
	ctx = belt.WithField(ctx, "program", programName)
	ctx = belt.WithField(ctx, "pid", os.Getpid())

	l = logger.FromCtx(ctx)
	logger.Default = func() logger.Logger {
		return l
	}

	return ctx
}

func releaseName() string {
	v := buildVersion()
	if v == "" {
		return ""
	}
	return programName + "@" + strings.TrimPrefix(v, "v")
}

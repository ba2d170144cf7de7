package main

import (
	"time"

	"github.com/Johnhpure/product-audit/internal/catalog"
	"github.com/Johnhpure/product-audit/internal/env"
	"github.com/Johnhpure/product-audit/internal/gateway"
	"github.com/Johnhpure/product-audit/internal/moderation"
	"github.com/Johnhpure/product-audit/internal/ocr"
	"github.com/Johnhpure/product-audit/internal/pipeline"
	"github.com/Johnhpure/product-audit/internal/runstate"
	"github.com/Johnhpure/product-audit/internal/scope"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	cfg := config{
		addr: env.GetString("AUDITOR_ADDR", ":4000"),
		env:  env.GetString("ENV", "development"),
		catalog: catalog.Config{
			BaseURL:  env.GetString("CATALOG_BASE_URL", "http://localhost:8080"),
			PageSize: env.GetInt("CATALOG_PAGE_SIZE", 200),
		},
		moderation: moderation.Config{
			Endpoint:        env.GetString("MODERATION_ENDPOINT", "https://green-cip.cn-shanghai.aliyuncs.com"),
			AccessKeyID:     env.GetString("ALIYUN_ACCESS_KEY_ID", ""),
			AccessKeySecret: env.GetString("ALIYUN_ACCESS_KEY_SECRET", ""),
		},
		ocr: ocr.Config{
			Endpoint:        env.GetString("OCR_ENDPOINT", "https://ocr-api.cn-hangzhou.aliyuncs.com"),
			TokenEndpoint:   env.GetString("OCR_TOKEN_ENDPOINT", "https://viapi.cn-shanghai.aliyuncs.com"),
			AccessKeyID:     env.GetString("ALIYUN_ACCESS_KEY_ID", ""),
			AccessKeySecret: env.GetString("ALIYUN_ACCESS_KEY_SECRET", ""),
		},
		uploader: ocr.S3Uploader{
			Bucket:   env.GetString("OCR_TEMP_BUCKET", "viapi-customer-temp"),
			Endpoint: env.GetString("OCR_TEMP_ENDPOINT", "https://oss-cn-shanghai.aliyuncs.com"),
			Region:   env.GetString("OCR_TEMP_REGION", "cn-shanghai"),
		},
		scope: scope.Config{
			Endpoint: env.GetString("SCOPE_ENDPOINT", "https://api.deepseek.com/chat/completions"),
			Model:    env.GetString("SCOPE_MODEL", "deepseek-chat"),
			APIKey:   env.GetString("SCOPE_API_KEY", ""),
		},
		gateway: gateway.Config{
			BaseURL:        env.GetString("GATEWAY_BASE_URL", "http://localhost:3000"),
			AuthToken:      env.GetString("GATEWAY_AUTH_TOKEN", ""),
			MaxRetries:     env.GetInt("GATEWAY_MAX_RETRIES", 3),
			RetryBaseDelay: env.GetDuration("GATEWAY_RETRY_BASE_DELAY", time.Second),
			RetryMaxDelay:  env.GetDuration("GATEWAY_RETRY_MAX_DELAY", 5*time.Second),
		},
		pipeline: pipeline.Config{
			ProductDelay:   env.GetDuration("AUDIT_PRODUCT_DELAY", time.Second),
			ImageDelay:     env.GetDuration("AUDIT_IMAGE_DELAY", 500*time.Millisecond),
			HistoryLimit:   env.GetInt("AUDIT_HISTORY_LIMIT", 1000),
			RecordApproved: env.GetBool("AUDIT_RECORD_APPROVED", false),
			UserID:         env.GetString("AUDIT_USER_ID", ""),
			Username:       env.GetString("AUDIT_USERNAME", ""),
		},
		stateFile: env.GetString("AUDIT_STATE_FILE", "auditor-state.json"),
	}

	// logger
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	store := runstate.NewStore(cfg.stateFile)

	prior, err := store.Load()
	if err != nil {
		logger.Warnw("failed to load run state, starting fresh", "error", err)
		prior = runstate.State{}
	}

	gatewayClient := gateway.NewClient(cfg.gateway, logger)

	deps := pipeline.Deps{
		Catalog:   catalog.NewSource(cfg.catalog, logger),
		Moderator: moderation.NewClient(cfg.moderation, logger),
		License:   ocr.NewClient(cfg.ocr, cfg.uploader, logger),
		Scope:     scope.NewClient(cfg.scope, logger),
		Gateway:   gatewayClient,
	}

	pipe := pipeline.New(deps, cfg.pipeline, store, prior, logger)

	// A run that was active when the process died resumes on its own; the
	// bounded history restored above keeps already-rejected products skipped.
	if prior.Running {
		logger.Info("previous run was active, resuming")
		if err := pipe.Start(); err != nil {
			logger.Errorw("failed to resume pipeline", "error", err)
		}
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		pipeline: pipe,
		gateway:  gatewayClient,
	}

	mux := app.mount()

	logger.Fatal(app.run(mux))
}

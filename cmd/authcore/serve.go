package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authcore/internal/apikey"
	"github.com/dropDatabas3/authcore/internal/authflow"
	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/config"
	httpserver "github.com/dropDatabas3/authcore/internal/http"
	"github.com/dropDatabas3/authcore/internal/http/handlers"
	"github.com/dropDatabas3/authcore/internal/http/router"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/mfa"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/rate"
	"github.com/dropDatabas3/authcore/internal/refresh"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/security/secretbox"
	"github.com/dropDatabas3/authcore/internal/social"
	"github.com/dropDatabas3/authcore/internal/social/github"
	"github.com/dropDatabas3/authcore/internal/social/google"
	"github.com/dropDatabas3/authcore/internal/store/memory"
	"github.com/dropDatabas3/authcore/internal/store/pg"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/events"
)

// stores agrupa los repositorios sin importar el driver.
type stores struct {
	principals repository.PrincipalRepository
	tokens     repository.RefreshTokenRepository
	apikeys    repository.APIKeyRepository
	mfa        repository.MFARepository
	oauth      repository.OAuthRepository
	tenants    repository.TenantRepository
	ping       func(context.Context) error
	close      func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case "memory":
		st := memory.New()
		return &stores{
			principals: st.Principals(),
			tokens:     st.Tokens(),
			apikeys:    st.APIKeys(),
			mfa:        st.MFA(),
			oauth:      st.OAuth(),
			tenants:    st.Tenants(),
			ping:       func(context.Context) error { return nil },
			close:      func() {},
		}, nil
	case "postgres":
		var lifetime time.Duration
		if s := cfg.Storage.Postgres.ConnMaxLifetime; s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				lifetime = d
			}
		}
		st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &stores{
			principals: st.Principals(),
			tokens:     st.Tokens(),
			apikeys:    st.APIKeys(),
			mfa:        st.MFA(),
			oauth:      st.OAuth(),
			tenants:    st.Tenants(),
			ping:       func(ctx context.Context) error { return st.Pool().Ping(ctx) },
			close:      st.Close,
		}, nil
	default:
		return nil, fmt.Errorf("storage driver desconocido: %q", cfg.Storage.Driver)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func buildLimiter(cfg *config.Config, limit int, window string, name string) rate.Limiter {
	if !cfg.Rate.Enabled || limit <= 0 {
		return nil
	}
	w, err := time.ParseDuration(window)
	if err != nil || w <= 0 {
		w = time.Minute
	}
	if cfg.Cache.Kind == "redis" {
		client := rdb.NewClient(&rdb.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		return rate.NewRedisLimiter(client, "rl:"+name+":", limit, w)
	}
	return rate.NewMemoryLimiter(limit, w)
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       os.Getenv("LOG_LEVEL"),
				ServiceName: "authcore",
			})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("serve")

			if err := secretbox.MustLoad(); err != nil {
				return fmt.Errorf("secretbox: %w", err)
			}

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			c, err := cache.New(cache.Config{
				Driver:   cfg.Cache.Kind,
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
				Prefix:   cfg.Cache.Redis.Prefix,
			})
			if err != nil {
				return fmt.Errorf("cache: %w", err)
			}
			defer func() { _ = c.Close() }()

			// Claves de firma: PEM en disco, o efímeras fuera de prod.
			var ks *jwtx.KeySet
			if p := cfg.JWT.PrivateKeyPath; p != "" {
				ks, err = jwtx.LoadKeySetFromPEM(p)
				if err != nil {
					return fmt.Errorf("signing key: %w", err)
				}
			} else {
				if cfg.IsProd() {
					return fmt.Errorf("prod requiere jwt.private_key_path")
				}
				ks, err = jwtx.NewDevRSA()
				if err != nil {
					return fmt.Errorf("dev key: %w", err)
				}
				log.Warn("usando clave RSA efímera; los tokens mueren con el proceso")
			}

			issuer := jwtx.NewIssuer(cfg.JWT.Issuer, ks)
			if ttl := cfg.AccessTTL(); ttl > 0 {
				issuer.AccessTTL = ttl
			}
			jwks := jwtx.NewJWKSCache(cfg.JWKSCacheTTL(), func() ([]byte, error) {
				return ks.JWKSJSON(), nil
			})

			var pub events.Publisher = events.Noop{}
			if cfg.SMTP.Host != "" {
				pub = events.NewSMTPNotifier(events.SMTPConfig{
					Host:               cfg.SMTP.Host,
					Port:               cfg.SMTP.Port,
					From:               cfg.SMTP.From,
					User:               cfg.SMTP.Username,
					Pass:               cfg.SMTP.Password,
					TLSMode:            cfg.SMTP.TLS,
					InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
					ResetURL:           cfg.SMTP.ResetURL,
				})
			}

			refreshSvc := refresh.NewService(st.tokens).WithEvents(pub)
			if ttl := cfg.RefreshTTL(); ttl > 0 {
				refreshSvc = refreshSvc.WithTTL(ttl)
			}
			keySvc := apikey.NewService(st.apikeys)
			mfaEngine := mfa.NewEngine(st.mfa, st.principals, c, cfg.MFA.IssuerName).
				WithSessions(refreshSvc).
				WithEvents(pub)

			pp := cfg.Security.PasswordPolicy
			policy := &password.Policy{
				MinLength:      pp.MinLength,
				RequireUpper:   pp.RequireUpper,
				RequireLower:   pp.RequireLower,
				RequireNumber:  pp.RequireNumber,
				RequireSpecial: pp.RequireSpecial,
				MinUniqueChars: pp.MinUniqueChars,
				HistoryCount:   pp.HistoryCount,
			}

			var blacklist *password.Blacklist
			if p := cfg.Security.PasswordBlacklistPath; p != "" {
				blacklist, err = password.LoadBlacklist(p)
				if err != nil {
					return fmt.Errorf("password blacklist: %w", err)
				}
			}

			flow := authflow.NewService(authflow.Deps{
				Principals: st.principals,
				OAuth:      st.oauth,
				Refresh:    refreshSvc,
				Issuer:     issuer,
				MFA:        mfaEngine,
				Cache:      c,
				Events:     pub,
				Policy:     policy,
				Blacklist:  blacklist,
			})

			providers := social.NewRegistry()
			if g := cfg.Providers.Google; g.Enabled {
				if err := providers.Register(google.New(g.ClientID, g.ClientSecret, g.RedirectURL)); err != nil {
					return err
				}
			}
			if gh := cfg.Providers.GitHub; gh.Enabled {
				if err := providers.Register(github.New(gh.ClientID, gh.ClientSecret, gh.RedirectURL)); err != nil {
					return err
				}
			}

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			handler := router.New(router.Deps{
				Issuer:             issuer,
				JWKS:               jwks,
				Flow:               flow,
				MFA:                mfaEngine,
				APIKeys:            keySvc,
				Tenants:            st.tenants,
				Providers:          providers,
				Exchange:           social.NewExchangeCodes(c),
				Cache:              c,
				ResultURL:          cfg.Providers.ResultURL,
				CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
				LoginLimiter:       buildLimiter(cfg, cfg.Rate.Login.Limit, cfg.Rate.Login.Window, "login"),
				ForgotLimiter:      buildLimiter(cfg, cfg.Rate.Forgot.Limit, cfg.Rate.Forgot.Window, "forgot"),
				MFALimiter:         buildLimiter(cfg, cfg.Rate.MFAVerify.Limit, cfg.Rate.MFAVerify.Window, "mfa"),
				Health: map[string]handlers.Pinger{
					"storage": pingFunc(st.ping),
					"cache":   pingFunc(c.Ping),
				},
			})

			srv := httpserver.NewServer(cfg.Server.Addr, handler)

			// Poda periódica de refresh tokens vencidos.
			pruneCtx, cancelPrune := context.WithCancel(ctx)
			defer cancelPrune()
			go func() {
				t := time.NewTicker(time.Hour)
				defer t.Stop()
				for {
					select {
					case <-pruneCtx.Done():
						return
					case <-t.C:
						if n, err := refreshSvc.PruneExpired(pruneCtx); err == nil && n > 0 {
							log.Info("refresh tokens vencidos eliminados", logger.Count(n))
						}
					}
				}
			}()

			stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-stop.Done():
			}

			shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShut()
			return srv.Shutdown(shutCtx)
		},
	}
}
